// Package infra contém os adaptadores concretos de push:
//
//   - WebPushTransport: entrega via protocolo Web Push (VAPID)
//   - SQLSubscriptionStore: registro de inscrições em SQL
package infra
