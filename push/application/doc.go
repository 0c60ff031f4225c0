// Package application contém os casos de uso de push: o disparo em fan-out
// (Dispatcher) e o registro de inscrições (Subscriptions).
package application
