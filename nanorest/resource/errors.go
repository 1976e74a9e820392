package resource

import "errors"

var (
	// ErrUnknownRelation is returned by GetRelation for a relation the schema does not declare
	ErrUnknownRelation = errors.New("unknown relation")

	// ErrUnknownProperty is returned by Set in strict mode for undeclared properties
	ErrUnknownProperty = errors.New("unknown property")

	// ErrSchemaRedefined is returned when a bound repository is bound again
	ErrSchemaRedefined = errors.New("repository is already bound to a schema")

	// ErrSyncFailed wraps transport failures during Sync and Destroy
	ErrSyncFailed = errors.New("unable to sync data")

	// ErrFindFailed wraps transport and parse failures during Find
	ErrFindFailed = errors.New("unable to find data")
)
