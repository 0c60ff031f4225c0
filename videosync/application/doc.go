// Package application contém o Sink, que traduz callbacks do transcodificador
// em atualizações do estado da aula.
package application
