// Package domain define contratos e tipos de domínio para rate limit por janela
// e limite de concorrência.
//
// Não depende de net/http nem de implementações concretas.
package domain
