package utils

import (
	"fmt"

	"devcamper-backend/apperror"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StringToObjectId parses a hex id. A malformed id can never match a document,
// so it is reported as NotFound like the lookup itself would be.
func StringToObjectId(id string, what string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperror.New(apperror.NotFound, fmt.Sprintf("%s not found with id of %s", what, id), err)
	}
	return oid, nil
}
