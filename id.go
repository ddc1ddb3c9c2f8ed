package raise

import "github.com/xraph/raise/id"

// ID is the primary identifier type for all Raise entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
