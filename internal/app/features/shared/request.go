// Package shared holds request helpers used by every JSON feature.
package shared

import (
	"net/http"

	"github.com/dalemusser/chorehub/internal/app/system/apperr"
	"github.com/dalemusser/chorehub/internal/app/system/auth"
	"github.com/dalemusser/chorehub/internal/app/system/jsonio"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserID returns the signed-in user's id or writes a 401 and returns false.
func UserID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, ok := auth.UserID(r)
	if !ok {
		jsonio.Fail(w, http.StatusUnauthorized, "unauthenticated", "sign in required")
		return primitive.NilObjectID, false
	}
	return id, true
}

// ObjectIDParam parses the chi URL parameter name as an ObjectID.
func ObjectIDParam(r *http.Request, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("invalid " + name)
	}
	return id, nil
}

// ObjectIDValue parses a hex id taken from a request body field.
func ObjectIDValue(field, hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("invalid " + field)
	}
	return id, nil
}
