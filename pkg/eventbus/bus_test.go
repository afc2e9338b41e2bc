package eventbus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/swiftinvoice-api/pkg/eventbus"
)

func TestPublish_EntregaATodosLosSuscriptores(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()

	ch1, unsub1 := bus.Subscribe(eventbus.TopicInvoiceCreated)
	defer unsub1()
	ch2, unsub2 := bus.Subscribe(eventbus.TopicInvoiceCreated)
	defer unsub2()

	bus.Publish(eventbus.TopicInvoiceCreated, "inv-1")

	for _, ch := range []<-chan eventbus.Event{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, eventbus.TopicInvoiceCreated, ev.Topic)
			assert.Equal(t, "inv-1", ev.Payload)
		default:
			t.Fatal("el evento debe llegar a todos los suscriptores")
		}
	}
}

func TestPublish_TopicsIndependientes(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()

	created, unsub := bus.Subscribe(eventbus.TopicInvoiceCreated)
	defer unsub()

	bus.Publish(eventbus.TopicInvoiceDeleted, "inv-1")

	select {
	case <-created:
		t.Fatal("un suscriptor de created no debe recibir deleted")
	default:
	}
}

// Un suscriptor con el buffer lleno pierde eventos, pero nunca bloquea al
// publicador.
func TestPublish_NoBloqueaConBufferLleno(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()

	ch, unsub := bus.Subscribe(eventbus.TopicInvoiceUpdated)
	defer unsub()

	// Más eventos que la capacidad del buffer; Publish no debe bloquear.
	for i := 0; i < 100; i++ {
		bus.Publish(eventbus.TopicInvoiceUpdated, i)
	}

	received := 0
	for {
		select {
		case <-ch:
			received++
			continue
		default:
		}
		break
	}
	assert.Greater(t, received, 0)
	assert.Less(t, received, 100, "los que no caben se descartan")
}

func TestUnsubscribe_CierraElCanal(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()

	ch, unsub := bus.Subscribe(eventbus.TopicAuthLogin)
	unsub()

	_, open := <-ch
	assert.False(t, open, "darse de baja cierra el canal")

	// Publicar tras la baja no entra en pánico ni entrega nada.
	bus.Publish(eventbus.TopicAuthLogin, "uid-1")
}

func TestClose_CierraTodosLosCanales(t *testing.T) {
	bus := eventbus.New()

	ch, _ := bus.Subscribe(eventbus.TopicAuthRegister)
	bus.Close()

	_, open := <-ch
	require.False(t, open)

	// Operar sobre un bus cerrado es inocuo.
	bus.Publish(eventbus.TopicAuthRegister, "uid-1")
	ch2, unsub := bus.Subscribe(eventbus.TopicAuthRegister)
	unsub()
	_, open = <-ch2
	assert.False(t, open, "suscribirse a un bus cerrado devuelve un canal cerrado")
}
