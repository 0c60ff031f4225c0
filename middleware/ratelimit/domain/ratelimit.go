package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import "time"

// Key identifica o cliente (IP, API key, usuário).
type Key string

// Decision é o resultado de uma checagem de janela.
type Decision struct {
	Limited   bool
	Remaining int
	// ResetAt é quando a janela atual expira e a contagem recomeça.
	ResetAt time.Time
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}

// WindowLimiter conta requisições por chave dentro de uma janela fixa.
//
// Check é atômico por chave: duas chamadas concorrentes para a mesma chave
// nunca perdem incremento. A implementação é por processo; várias instâncias
// do serviço não compartilham contagem.
type WindowLimiter interface {
	Check(key Key, max int) Decision
}
