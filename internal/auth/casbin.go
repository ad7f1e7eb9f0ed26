package auth

import (
	"errors"
	"strconv"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/util"
	sqlxadapter "github.com/memwey/casbin-sqlx-adapter"
)

// Roles checked by the route authorizer. Each role inherits the one before it.
const (
	RoleAnonymous = "anonymous"
	RoleUser      = "user"
	RoleStaff     = "staff"
)

// NewEnforcer creates a Casbin enforcer whose policies are stored in the
// application database (table casbin_rule) and loads them.
//
// Parameters:
//   - driverName: "mysql" or "sqlite3".
//   - dsn: The Data Source Name for the database connection.
//   - modelPath: The file path to the Casbin model configuration (`.conf`).
func NewEnforcer(driverName, dsn, modelPath string) (*casbin.Enforcer, error) {
	opts := &sqlxadapter.AdapterOptions{
		DriverName:     driverName,
		DataSourceName: dsn,
		TableName:      "casbin_rule",
	}
	adapter := sqlxadapter.NewAdapterFromOptions(opts)

	enforcer, err := casbin.NewEnforcer(modelPath, adapter)
	if err != nil {
		return nil, err
	}
	registerFunctions(enforcer)

	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

// NewMemoryEnforcer creates an enforcer without a storage adapter. Policies
// live only in memory; used by tests and by tooling that seeds on start.
func NewMemoryEnforcer(modelPath string) (*casbin.Enforcer, error) {
	enforcer, err := casbin.NewEnforcer(modelPath)
	if err != nil {
		return nil, err
	}
	registerFunctions(enforcer)
	return enforcer, nil
}

// registerFunctions adds the matchers used by auth_model.conf: routeMatch
// for "/entry/:id/" style paths and regexMatch for "GET|POST" actions.
func registerFunctions(e *casbin.Enforcer) {
	e.AddFunction("routeMatch", routeMatchFunc)
	e.AddFunction("regexMatch", util.RegexMatchFunc)
}

// RouteMatch reports whether path matches a route pattern such as
// "/entry/:id/". A ":name" segment matches a numeric id only, so
// "/entry/:id/" does not match "/entry/new/".
func RouteMatch(path, pattern string) bool {
	got := strings.Split(path, "/")
	want := strings.Split(pattern, "/")
	if len(got) != len(want) {
		return false
	}
	for i, seg := range want {
		if strings.HasPrefix(seg, ":") {
			if _, err := strconv.ParseUint(got[i], 10, 64); err != nil {
				return false
			}
			continue
		}
		if seg != got[i] {
			return false
		}
	}
	return true
}

func routeMatchFunc(args ...interface{}) (interface{}, error) {
	if len(args) != 2 {
		return false, errors.New("routeMatch: expected 2 arguments")
	}
	path, ok := args[0].(string)
	pattern, ok2 := args[1].(string)
	if !ok || !ok2 {
		return false, errors.New("routeMatch: arguments must be strings")
	}
	return RouteMatch(path, pattern), nil
}
