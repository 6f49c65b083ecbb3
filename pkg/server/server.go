package server

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/OpenMined/syft-rds/pkg/datasite"
	"github.com/OpenMined/syft-rds/pkg/permission"
	"github.com/OpenMined/syft-rds/pkg/rpc"
	"github.com/OpenMined/syft-rds/pkg/store"
	"github.com/OpenMined/syft-rds/pkg/types"
)

// Version is the app version reported by the health endpoint.
const Version = "0.5.0"

// App owns the per-kind stores and the endpoint handlers of one Data
// Owner datasite.
type App struct {
	Layout datasite.Layout
	Mux    *rpc.Mux

	Jobs            *store.Store[*types.Job]
	Datasets        *store.Store[*types.Dataset]
	Runtimes        *store.Store[*types.Runtime]
	UserCode        *store.Store[*types.UserCode]
	CustomFunctions *store.Store[*types.CustomFunction]

	validate *validator.Validate
}

// NewApp opens the entity stores under the datasite layout and
// registers every endpoint on a fresh mux.
func NewApp(layout datasite.Layout) (*App, error) {
	a := &App{
		Layout:   layout,
		Mux:      rpc.NewMux(),
		validate: validator.New(),
	}

	var err error
	if a.Jobs, err = store.New(layout.StoreDir(string(types.KindJob)), string(types.KindJob), types.JobSchema(), func() *types.Job { return &types.Job{} }); err != nil {
		return nil, fmt.Errorf("failed to open job store: %w", err)
	}
	if a.Datasets, err = store.New(layout.StoreDir(string(types.KindDataset)), string(types.KindDataset), types.DatasetSchema(), func() *types.Dataset { return &types.Dataset{} }); err != nil {
		return nil, fmt.Errorf("failed to open dataset store: %w", err)
	}
	if a.Runtimes, err = store.New(layout.StoreDir(string(types.KindRuntime)), string(types.KindRuntime), types.RuntimeSchema(), func() *types.Runtime { return &types.Runtime{} }); err != nil {
		return nil, fmt.Errorf("failed to open runtime store: %w", err)
	}
	if a.UserCode, err = store.New(layout.StoreDir(string(types.KindUserCode)), string(types.KindUserCode), types.UserCodeSchema(), func() *types.UserCode { return &types.UserCode{} }); err != nil {
		return nil, fmt.Errorf("failed to open user code store: %w", err)
	}
	if a.CustomFunctions, err = store.New(layout.StoreDir(string(types.KindCustomFunction)), string(types.KindCustomFunction), types.CustomFunctionSchema(), func() *types.CustomFunction { return &types.CustomFunction{} }); err != nil {
		return nil, fmt.Errorf("failed to open custom function store: %w", err)
	}

	a.registerJobEndpoints()
	a.registerDatasetEndpoints()
	a.registerRuntimeEndpoints()
	a.registerUserCodeEndpoints()
	a.registerCustomFunctionEndpoints()
	a.Mux.Handle(rpc.HealthEndpoint, a.handleHealth)

	return a, nil
}

// roleFor derives the caller's role from the transport identity. The
// identity is per-request; it is never cached process-wide.
func (a *App) roleFor(req *rpc.Request) permission.Role {
	return permission.RoleFor(req.SenderEmail, a.Layout.Owner)
}

func (a *App) handleHealth(req *rpc.Request) (any, error) {
	return &rpc.HealthResponse{
		App:     datasite.AppName,
		Version: Version,
		Owner:   a.Layout.Owner,
		Status:  "ok",
	}, nil
}

// byName builds an equality query on the name field.
func byName(name string) store.Query {
	return byField("name", name)
}

// byField builds a single-field equality query.
func byField(field, value string) store.Query {
	return store.Query{Filters: map[string]any{field: value}}
}

// storeQuery converts the wire paging/filter shape into a store query.
func storeQuery(req *rpc.GetAllRequest) store.Query {
	var filters map[string]any
	if len(req.Filters) > 0 {
		filters = make(map[string]any, len(req.Filters))
		for k, v := range req.Filters {
			filters[k] = v
		}
	}
	return store.Query{
		Limit:     req.Limit,
		Offset:    req.Offset,
		OrderBy:   req.OrderBy,
		SortOrder: store.SortOrder(req.SortOrder),
		Filters:   filters,
	}
}
