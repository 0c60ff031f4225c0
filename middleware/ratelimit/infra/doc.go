// Package infra contém implementações concretas para os contratos do pacote domain.
//
//   - WindowStore: contador de janela fixa por chave, com janitor de expiração
//   - ChanPool: semáforo para limite de concorrência
//   - MemoryStatsStore / RedisStatsStore: estatísticas das decisões
package infra
