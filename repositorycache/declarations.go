package repositorycache

import (
	"github.com/goliatone/go-cache-intercept/interceptor"
)

type signature struct {
	name   string
	params []string
	kind   writeKind
}

type writeKind int

const (
	readOp writeKind = iota
	createOp
	mutateOp
)

func sig(kind writeKind, name string, params ...string) signature {
	return signature{name: name, params: params, kind: kind}
}

var (
	methodGet             = sig(readOp, "Get", "criteria")
	methodGetByID         = sig(readOp, "GetByID", "id", "criteria")
	methodGetByIdentifier = sig(readOp, "GetByIdentifier", "identifier", "criteria")
	methodList            = sig(readOp, "List", "criteria")
	methodCount           = sig(readOp, "Count", "criteria")

	methodCreate        = sig(createOp, "Create", "record", "criteria")
	methodCreateTx      = sig(createOp, "CreateTx", "tx", "record", "criteria")
	methodCreateMany    = sig(createOp, "CreateMany", "records", "criteria")
	methodCreateManyTx  = sig(createOp, "CreateManyTx", "tx", "records", "criteria")
	methodGetOrCreate   = sig(createOp, "GetOrCreate", "record")
	methodGetOrCreateTx = sig(createOp, "GetOrCreateTx", "tx", "record")

	methodUpdate        = sig(mutateOp, "Update", "record", "criteria")
	methodUpdateTx      = sig(mutateOp, "UpdateTx", "tx", "record", "criteria")
	methodUpdateMany    = sig(mutateOp, "UpdateMany", "records", "criteria")
	methodUpdateManyTx  = sig(mutateOp, "UpdateManyTx", "tx", "records", "criteria")
	methodUpsert        = sig(mutateOp, "Upsert", "record", "criteria")
	methodUpsertTx      = sig(mutateOp, "UpsertTx", "tx", "record", "criteria")
	methodUpsertMany    = sig(mutateOp, "UpsertMany", "records", "criteria")
	methodUpsertManyTx  = sig(mutateOp, "UpsertManyTx", "tx", "records", "criteria")
	methodDelete        = sig(mutateOp, "Delete", "record")
	methodDeleteTx      = sig(mutateOp, "DeleteTx", "tx", "record")
	methodDeleteMany    = sig(mutateOp, "DeleteMany", "criteria")
	methodDeleteManyTx  = sig(mutateOp, "DeleteManyTx", "tx", "criteria")
	methodDeleteWhere   = sig(mutateOp, "DeleteWhere", "criteria")
	methodDeleteWhereTx = sig(mutateOp, "DeleteWhereTx", "tx", "criteria")
	methodForceDelete   = sig(mutateOp, "ForceDelete", "record")
	methodForceDeleteTx = sig(mutateOp, "ForceDeleteTx", "tx", "record")
)

var signatures = []signature{
	methodGet, methodGetByID, methodGetByIdentifier, methodList, methodCount,
	methodCreate, methodCreateTx, methodCreateMany, methodCreateManyTx,
	methodGetOrCreate, methodGetOrCreateTx,
	methodUpdate, methodUpdateTx, methodUpdateMany, methodUpdateManyTx,
	methodUpsert, methodUpsertTx, methodUpsertMany, methodUpsertManyTx,
	methodDelete, methodDeleteTx, methodDeleteMany, methodDeleteManyTx,
	methodDeleteWhere, methodDeleteWhereTx, methodForceDelete, methodForceDeleteTx,
}

// readKeys holds the key expression of reads addressed by a single argument.
// The other reads use the generated key.
var readKeys = map[string]string{
	methodGetByID.name:         "#id",
	methodGetByIdentifier.name: "#identifier",
}

var readCaches = map[string]string{
	methodGet.name:             CacheGet,
	methodGetByID.name:         CacheGetByID,
	methodGetByIdentifier.name: CacheGetByIdentifier,
	methodList.name:            CacheList,
	methodCount.name:           CacheCount,
}

// declarations maps every call site of namespace to its cache operations.
// Criteria are opaque query builders, so only criteria-free reads are cached.
func declarations(namespace string, sync bool) map[string]interceptor.Declaration {
	out := make(map[string]interceptor.Declaration, len(signatures))

	for _, s := range signatures {
		site := interceptor.NewMethod(namespace, s.name).ID()

		switch s.kind {
		case readOp:
			op := interceptor.Cacheable(namespace + "." + readCaches[s.name]).
				WithCondition("#criteria.isEmpty()")
			if key, ok := readKeys[s.name]; ok {
				op = op.WithKey(key)
			}
			if sync {
				op = op.WithSync()
			}
			out[site] = op
		case createOp:
			out[site] = interceptor.Evict(
				namespace+"."+CacheList,
				namespace+"."+CacheCount,
			).WithAllEntries()
		case mutateOp:
			out[site] = interceptor.Evict(CacheNames(namespace)...).WithAllEntries()
		}
	}

	return out
}
