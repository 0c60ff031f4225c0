// Package push expõe o disparo de notificações Web Push por HTTP e por agenda.
//
// Camadas:
//
//   - domain: endpoints, payload, resultado de entrega
//   - application: Dispatcher (fan-out) e Subscriptions (registro)
//   - infra: transporte Web Push e registro SQL
//   - push (este pacote): handlers HTTP e Scheduler (cron)
package push
