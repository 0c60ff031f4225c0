// Package application contém os casos de uso do rate limit por janela e do
// limite de concorrência.
//
// Depende apenas do pacote domain e não conhece net/http.
// Ex.: Service.Decide(key) retorna uma Decision (limited/remaining/reset + retry-after).
package application
