package domain

import (
	"encoding/json"
	"strings"
)

const (
	DefaultTitle = "XPACE ON"
	DefaultBody  = "Confira as novidades na plataforma!"
	DefaultURL   = "/"
)

// Payload é a notificação enviada igual para todos os endpoints de um disparo.
// Construa com NewPayload; os campos não mudam depois.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}

// NewPayload aplica os padrões aos campos vazios.
func NewPayload(title, body, url string) Payload {
	return Payload{
		Title: orDefault(title, DefaultTitle),
		Body:  orDefault(body, DefaultBody),
		URL:   orDefault(url, DefaultURL),
	}
}

func (p Payload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
