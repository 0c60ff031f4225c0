// Package videosync recebe os callbacks do serviço de transcodificação de
// vídeo e atualiza o estado da aula correspondente.
//
// O webhook responde 200 {"received":true} para tudo que consegue ler,
// inclusive guid desconhecido e status não reconhecido. Só payload inválido
// recebe 400.
package videosync
