package errors_test

import (
	"errors"
	"net/http"
	"testing"

	nesterrs "github.com/adityarao312/feednest/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestEConstructor(t *testing.T) {
	got := nesterrs.E(
		"something went wrong",
		nesterrs.Detail{Field: "email", Error: "was bad"},
		http.StatusBadRequest,
	)
	want := &nesterrs.Error{
		Err: errors.New("something went wrong"),
		Details: []nesterrs.Detail{
			{Field: "email", Error: "was bad"},
		},
		Status: http.StatusBadRequest,
	}

	assert.Equal(t, want, got)
}

func TestMarshalJSON(t *testing.T) {
	err := nesterrs.E("nope", http.StatusUnauthorized)

	byts, marshalErr := err.MarshalJSON()
	assert.NoError(t, marshalErr)
	assert.JSONEq(t, `{"message":"nope","details":null,"status":401,"success":false}`, string(byts))
}
