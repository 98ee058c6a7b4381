package types

import "strings"

type EndpointState string

const (
	EndpointStatePending   EndpointState = "PENDING"
	EndpointStateInService EndpointState = "IN_SERVICE"
	EndpointStateFailed    EndpointState = "FAILED"
	EndpointStateDeleting  EndpointState = "DELETING"
	EndpointStateDeleted   EndpointState = "DELETED"
)

type Action string

const (
	ActionMarkInService Action = "MARK_IN_SERVICE"
	ActionMarkFailed    Action = "MARK_FAILED"
)

type PoolEnv string

const (
	PoolEnvInt  PoolEnv = "int"
	PoolEnvProd PoolEnv = "prod"
)

func NormalizePoolEnv(env string) PoolEnv {
	return PoolEnv(strings.ToLower(strings.TrimSpace(env)))
}

func IsSupportedPoolEnv(env string) bool {
	n := NormalizePoolEnv(env)
	return n == PoolEnvInt || n == PoolEnvProd
}
