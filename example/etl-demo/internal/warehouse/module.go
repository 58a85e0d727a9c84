package warehouse

import (
	"os"

	"go.uber.org/fx"
)

// defaultDBPath is used when ETL_DEMO_DB is not set.
const defaultDBPath = "etl_demo.db"

// NewFromEnv opens the warehouse at the path named by ETL_DEMO_DB and
// closes it on application shutdown.
func NewFromEnv(lc fx.Lifecycle) (*Warehouse, error) {
	path := os.Getenv("ETL_DEMO_DB")
	if path == "" {
		path = defaultDBPath
	}
	w, err := Open(path)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(w.Close))
	return w, nil
}

// Module provides the demo warehouse to Fx.
var Module = fx.Options(
	fx.Provide(NewFromEnv),
)
