package handlers

import (
	"net/http"

	"taskManager/internal/httpjson"
)

type Payload struct {
	Key     string
	Payload any
}

func toPayload(key string, pl any) Payload {
	return Payload{Key: key, Payload: pl}
}

func responseWithJSON(w http.ResponseWriter, code int, payload ...Payload) {
	storage := make(map[string]any, len(payload))
	for _, pl := range payload {
		storage[pl.Key] = pl.Payload
	}
	httpjson.Write(w, code, storage)
}

func responseWithData(w http.ResponseWriter, code int, data any) {
	httpjson.Write(w, code, data)
}

func responseWithError(w http.ResponseWriter, code int, errorCode, message string, details map[string]any) {
	httpjson.Error(w, code, errorCode, message, details)
}
