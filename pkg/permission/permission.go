package permission

import (
	"fmt"

	"github.com/OpenMined/syft-rds/pkg/errdefs"
	"github.com/OpenMined/syft-rds/pkg/types"
)

// Role is the caller's derived role on a datasite.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleGuest Role = "guest"
)

// Op is an operation class gated per entity kind.
type Op string

const (
	OpCreate Op = "create"
	OpRead   Op = "read"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// RoleFor derives the role: admin iff the sender is the datasite owner.
func RoleFor(sender, owner string) Role {
	if sender != "" && sender == owner {
		return RoleAdmin
	}
	return RoleGuest
}

// adminOnly lists the (kind, op) pairs guests may not perform. Reads
// are open everywhere; job reads are additionally narrowed to the
// creator by the server.
var adminOnly = map[types.Kind]map[Op]bool{
	types.KindDataset: {
		OpCreate: true,
		OpUpdate: true,
		OpDelete: true,
	},
	types.KindRuntime: {
		OpCreate: true,
		OpUpdate: true,
		OpDelete: true,
	},
	types.KindJob: {
		// create is open; status mutation and deletion are not.
		OpUpdate: true,
		OpDelete: true,
	},
	types.KindUserCode: {
		OpDelete: true,
	},
	types.KindCustomFunction: {
		OpCreate: true,
		OpUpdate: true,
		OpDelete: true,
	},
}

// Check authorizes one operation, failing with the permission error
// kind when the role is insufficient.
func Check(role Role, kind types.Kind, op Op) error {
	if role == RoleAdmin {
		return nil
	}
	if adminOnly[kind][op] {
		return fmt.Errorf("%s %s requires the datasite admin: %w", kind, op, errdefs.ErrPermission)
	}
	return nil
}

// CanReadJob reports whether the caller may read a job record: the
// admin and the job's creator only.
func CanReadJob(role Role, sender string, job *types.Job) bool {
	return role == RoleAdmin || job.CreatedBy == sender
}
