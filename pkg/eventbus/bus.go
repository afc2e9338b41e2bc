// Package eventbus implementa un bus de eventos en proceso con semántica
// publish/subscribe explícita. Sustituye la señalización ambiental entre
// vistas (flags en almacenamiento global) por suscripciones con baja
// explícita: quien publica no conoce a los suscriptores y un suscriptor
// lento nunca bloquea al publicador (los eventos que no caben se descartan).
package eventbus

import "sync"

// Topics de la aplicación.
const (
	TopicAuthRegister   = "auth.register"
	TopicAuthLogin      = "auth.login"
	TopicInvoiceCreated = "invoice.created"
	TopicInvoiceUpdated = "invoice.updated"
	TopicInvoiceDeleted = "invoice.deleted"
)

// Event evento publicado en un topic.
type Event struct {
	Topic   string
	Payload any
}

// subscriberBuffer capacidad del canal de cada suscriptor.
const subscriberBuffer = 16

// Bus bus de eventos en proceso, seguro para uso concurrente.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]chan Event
	closed bool
}

// New construye un bus vacío.
func New() *Bus {
	return &Bus{subs: make(map[string]map[int]chan Event)}
}

// Subscribe registra un suscriptor para un topic. Devuelve el canal de
// eventos y la función de baja; darse de baja cierra el canal.
func (b *Bus) Subscribe(topic string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]chan Event)
	}
	id := b.nextID
	b.nextID++
	b.subs[topic][id] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if subs, ok := b.subs[topic]; ok {
			if c, ok := subs[id]; ok {
				delete(subs, id)
				close(c)
			}
		}
	}
	return ch, unsubscribe
}

// Publish entrega el evento a todos los suscriptores del topic sin bloquear:
// si el buffer de un suscriptor está lleno, ese evento se descarta para él.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs[topic] {
		select {
		case ch <- Event{Topic: topic, Payload: payload}:
		default:
		}
	}
}

// Close cierra el bus y todos los canales de suscriptores.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, subs := range b.subs {
		for id, ch := range subs {
			delete(subs, id)
			close(ch)
		}
	}
}
