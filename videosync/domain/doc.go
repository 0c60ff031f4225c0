// Package domain define o estado de processamento de vídeo de uma aula e o
// mapeamento dos status enviados pelo serviço de transcodificação.
package domain
