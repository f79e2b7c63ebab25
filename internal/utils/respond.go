package utils

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Content types understood by WriteResponse.
const (
	ContentTypeJSON    = "application/json"
	ContentTypeMsgpack = "application/msgpack"
)

// WantsMsgpack reports whether the Accept header names MessagePack.
func WantsMsgpack(r *http.Request) bool {
	if r == nil {
		return false
	}
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		if mediaType == ContentTypeMsgpack || mediaType == "application/x-msgpack" {
			return true
		}
	}
	return false
}

// WriteResponse encodes data as MessagePack when the client asks for it and as
// JSON otherwise. Struct fields carry matching json and msgpack tags so both
// encodings produce the same keys.
func WriteResponse(w http.ResponseWriter, r *http.Request, status int, data interface{}) error {
	if WantsMsgpack(r) {
		body, err := msgpack.Marshal(data)
		if err != nil {
			return err
		}
		w.Header().Set("Content-Type", ContentTypeMsgpack)
		w.WriteHeader(status)
		_, err = w.Write(body)
		return err
	}

	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// DecodeRequest decodes a JSON or MessagePack request body according to its
// Content-Type.
func DecodeRequest(r *http.Request, v interface{}) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == ContentTypeMsgpack || mediaType == "application/x-msgpack" {
		return msgpack.NewDecoder(r.Body).Decode(v)
	}
	return json.NewDecoder(r.Body).Decode(v)
}
