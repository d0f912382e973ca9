package pandda

import (
	"github.com/xraph/pandda/id"
	"github.com/xraph/pandda/types"
)

// ID is the identifier type for all Pandda records.
type ID = id.ID

// Money is re-exported from types package.
type Money = types.Money

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export Money constructors
var (
	BRL  = types.BRL
	USD  = types.USD
	Zero = types.Zero
	Sum  = types.Sum
)
