package domain

import (
	"context"
	"errors"
	"fmt"
)

var ErrInvalidCallback = errors.New("invalid video callback")

type LessonState string

const (
	StateProcessing LessonState = "processing"
	StatePublished  LessonState = "published"
	StateFailed     LessonState = "failed"
)

// StatusFinished é o único status de sucesso do transcodificador.
const StatusFinished = 3

// Callback é o corpo enviado pelo transcodificador. Os nomes de campo do JSON
// são os do serviço externo.
type Callback struct {
	VideoLibraryID int    `json:"VideoLibraryId"`
	VideoGuid      string `json:"VideoGuid"`
	Status         int    `json:"Status"`
	Length         int    `json:"Length"`
}

func (c Callback) Validate() error {
	if c.VideoGuid == "" {
		return fmt.Errorf("%w: VideoGuid is required", ErrInvalidCallback)
	}
	return nil
}

type Signal int

const (
	SignalIgnored Signal = iota
	SignalSuccess
	SignalFailure
)

func (s Signal) String() string {
	switch s {
	case SignalSuccess:
		return "success"
	case SignalFailure:
		return "failure"
	default:
		return "ignored"
	}
}

// Classify: 3 é sucesso; 4, 5 e 6 são falha; o resto é ignorado.
func Classify(status int) Signal {
	switch status {
	case StatusFinished:
		return SignalSuccess
	case 4, 5, 6:
		return SignalFailure
	default:
		return SignalIgnored
	}
}

// LessonStore aplica o resultado do vídeo à aula ligada ao guid externo.
//
// A escrita é um overwrite único (não incremento), então repetir o mesmo
// callback deixa o estado igual. Em published a duração é gravada (nil vira
// NULL); nos outros estados ela não é tocada.
// Retorna quantas linhas casaram; 0 não é erro.
type LessonStore interface {
	ApplyVideoResult(ctx context.Context, guid string, state LessonState, duration *int) (int64, error)
}

// Ack é o que o sink responde ao transcodificador.
type Ack struct {
	Received bool   `json:"received"`
	Signal   Signal `json:"-"`
	Matched  bool   `json:"-"`
}
