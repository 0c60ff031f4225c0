package domain

import (
	"errors"
	"fmt"
	"net/http"
)

type Outcome int

const (
	Delivered Outcome = iota
	TransientFailure
	// PermanentFailure: o endpoint nunca mais vai aceitar mensagens.
	PermanentFailure
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case TransientFailure:
		return "transient-failure"
	case PermanentFailure:
		return "permanent-failure"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// DeliveryError é uma entrega que não terminou em 2xx.
// StatusCode fica 0 quando a falha foi de rede/timeout.
type DeliveryError struct {
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("push service responded %d: %v", e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("push service responded %d", e.StatusCode)
	case e.Err != nil:
		return "push delivery failed: " + e.Err.Error()
	default:
		return "push delivery failed"
	}
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Classify traduz o erro de uma entrega: nil é entregue, 404/410 é permanente,
// qualquer outra falha é transitória.
func Classify(err error) Outcome {
	if err == nil {
		return Delivered
	}
	var de *DeliveryError
	if errors.As(err, &de) {
		switch de.StatusCode {
		case http.StatusNotFound, http.StatusGone:
			return PermanentFailure
		}
	}
	return TransientFailure
}

// Report resume um disparo. Attempted é o número principal devolvido ao
// chamador: quantos endpoints foram tentados, não quantos receberam.
type Report struct {
	Attempted int `json:"sentCount"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
	Pruned    int `json:"pruned"`
}
