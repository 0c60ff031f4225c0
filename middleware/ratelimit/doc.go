// Package ratelimit fornece os middlewares HTTP de admissão do gateway: rate
// limit por janela fixa e limite de concorrência.
//
// Camadas:
//
//   - domain: contratos e tipos (sem net/http)
//   - application: casos de uso (decisão + retry-after, acquire com timeout)
//   - infra: WindowStore em memória, semáforo, estatísticas (memória/Redis)
//   - ratelimit (este pacote): middlewares, extração da chave, status/headers
//
// Fluxo:
//
//  1. Extrai a identidade do cliente (X-Forwarded-For, X-Real-IP, CF-Connecting-IP)
//  2. Pede a decisão à camada application
//  3. Sempre devolve X-RateLimit-Limit/Remaining/Reset
//  4. Se bloqueado, responde 429 com Retry-After; senão chama o próximo handler
//
// O limite é por processo. Várias réplicas do serviço não coordenam contagem.
package ratelimit
