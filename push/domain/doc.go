// Package domain define os tipos e contratos do disparo de notificações push:
// endpoints, payload, classificação do resultado de cada entrega.
//
// Não depende de net/http nem do protocolo Web Push.
package domain
