package api

import (
	"context"
	"reflect"

	"github.com/filecoin-project/go-jsonrpc/auth"
	"golang.org/x/xerrors"

	gwauth "github.com/ipfs-force-community/rebalance-gateway/auth"
)

var defaultPerms = []auth.Permission{gwauth.PermRead}

// PermissionedFullAPI wraps impl so every call first checks the caller's permissions.
func PermissionedFullAPI(impl GatewayFullNode) *GatewayFullNodeStruct {
	var out GatewayFullNodeStruct
	for _, internal := range GetInternalStructs(&out) {
		PermissionProxy(impl, internal)
	}
	return &out
}

// GetInternalStructs returns the Internal fields of the embedded API structs.
func GetInternalStructs(in *GatewayFullNodeStruct) []interface{} {
	return []interface{}{&in.IProviderEventStruct.Internal, &in.IWalletLinkStruct.Internal}
}

// PermissionProxy fills the func fields of out with calls into in guarded by the fields' perm tag.
func PermissionProxy(in interface{}, out interface{}) {
	ra := reflect.ValueOf(in)
	rint := reflect.ValueOf(out).Elem()
	for i := 0; i < ra.NumMethod(); i++ {
		methodName := ra.Type().Method(i).Name
		field, exists := rint.Type().FieldByName(methodName)
		if !exists {
			continue
		}

		requiredPerm := auth.Permission(field.Tag.Get("perm"))
		if requiredPerm == "" {
			panic("missing 'perm' tag on " + field.Name) // ok
		}

		fn := ra.Method(i)
		rint.FieldByName(methodName).Set(reflect.MakeFunc(field.Type, func(args []reflect.Value) (results []reflect.Value) {
			ctx := args[0].Interface().(context.Context)
			if auth.HasPerm(ctx, defaultPerms, requiredPerm) {
				return fn.Call(args)
			}

			err := xerrors.Errorf("missing permission to invoke '%s' (need '%s')", methodName, requiredPerm)
			rerr := reflect.ValueOf(&err).Elem()
			if fn.Type().NumOut() == 2 {
				return []reflect.Value{
					reflect.Zero(fn.Type().Out(0)),
					rerr,
				}
			}
			return []reflect.Value{rerr}
		}))
	}
}
