package access

import (
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/sparql"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/vocab"
)

// Level is the depth of the scope a permission is checked against.
type Level int

const (
	LevelCluster Level = iota
	LevelOrg
	LevelRepo
	LevelBranch
	LevelLock
	LevelDiff
	LevelGroup
	LevelPolicy
)

// Permission is a named action on a class of resource, checked at a scope level.
type Permission struct {
	Name  string
	Class string
	Level Level
}

// IRI returns the permission individual.
func (p Permission) IRI() string { return vocab.ObjectNamespace + "Permission." + p.Name }

// Term returns the permission as a prefixed name.
func (p Permission) Term() sparql.Term {
	return sparql.PName{Prefix: "mms-object", Local: "Permission." + p.Name}
}

// Within returns p checked at a different level, e.g. listing branches needs
// ReadBranch over the repository.
func (p Permission) Within(level Level) Permission {
	p.Level = level
	return p
}

var (
	CreateOrg = Permission{"CreateOrg", vocab.ClassOrg, LevelCluster}
	ReadOrg   = Permission{"ReadOrg", vocab.ClassOrg, LevelOrg}
	UpdateOrg = Permission{"UpdateOrg", vocab.ClassOrg, LevelOrg}
	DeleteOrg = Permission{"DeleteOrg", vocab.ClassOrg, LevelOrg}

	CreateRepo = Permission{"CreateRepo", vocab.ClassRepo, LevelOrg}
	ReadRepo   = Permission{"ReadRepo", vocab.ClassRepo, LevelRepo}
	UpdateRepo = Permission{"UpdateRepo", vocab.ClassRepo, LevelRepo}
	DeleteRepo = Permission{"DeleteRepo", vocab.ClassRepo, LevelRepo}

	CreateBranch = Permission{"CreateBranch", vocab.ClassBranch, LevelRepo}
	ReadBranch   = Permission{"ReadBranch", vocab.ClassBranch, LevelBranch}
	UpdateBranch = Permission{"UpdateBranch", vocab.ClassBranch, LevelBranch}
	DeleteBranch = Permission{"DeleteBranch", vocab.ClassBranch, LevelBranch}

	CreateLock = Permission{"CreateLock", vocab.ClassLock, LevelRepo}
	ReadLock   = Permission{"ReadLock", vocab.ClassLock, LevelLock}
	UpdateLock = Permission{"UpdateLock", vocab.ClassLock, LevelLock}
	DeleteLock = Permission{"DeleteLock", vocab.ClassLock, LevelLock}

	CreateDiff = Permission{"CreateDiff", vocab.ClassDiff, LevelRepo}
	ReadDiff   = Permission{"ReadDiff", vocab.ClassDiff, LevelDiff}
	UpdateDiff = Permission{"UpdateDiff", vocab.ClassDiff, LevelDiff}
	DeleteDiff = Permission{"DeleteDiff", vocab.ClassDiff, LevelDiff}

	ReadCommit = Permission{"ReadCommit", vocab.ClassCommit, LevelRepo}

	CreateGroup = Permission{"CreateGroup", vocab.ClassGroup, LevelCluster}
	ReadGroup   = Permission{"ReadGroup", vocab.ClassGroup, LevelGroup}
	UpdateGroup = Permission{"UpdateGroup", vocab.ClassGroup, LevelGroup}
	DeleteGroup = Permission{"DeleteGroup", vocab.ClassGroup, LevelGroup}

	CreatePolicy = Permission{"CreatePolicy", vocab.ClassPolicy, LevelCluster}
	ReadPolicy   = Permission{"ReadPolicy", vocab.ClassPolicy, LevelPolicy}
	UpdatePolicy = Permission{"UpdatePolicy", vocab.ClassPolicy, LevelPolicy}
	DeletePolicy = Permission{"DeletePolicy", vocab.ClassPolicy, LevelPolicy}

	CreateUser = Permission{"CreateUser", vocab.ClassUser, LevelCluster}
	ReadUser   = Permission{"ReadUser", vocab.ClassUser, LevelCluster}
	UpdateUser = Permission{"UpdateUser", vocab.ClassUser, LevelCluster}
	DeleteUser = Permission{"DeleteUser", vocab.ClassUser, LevelCluster}
)

// crud groups the four permissions of one resource class.
type crud struct{ create, read, update, delete Permission }

var resources = []crud{
	{CreateOrg, ReadOrg, UpdateOrg, DeleteOrg},
	{CreateRepo, ReadRepo, UpdateRepo, DeleteRepo},
	{CreateBranch, ReadBranch, UpdateBranch, DeleteBranch},
	{CreateLock, ReadLock, UpdateLock, DeleteLock},
	{CreateDiff, ReadDiff, UpdateDiff, DeleteDiff},
	{CreateGroup, ReadGroup, UpdateGroup, DeleteGroup},
	{CreatePolicy, ReadPolicy, UpdatePolicy, DeletePolicy},
	{CreateUser, ReadUser, UpdateUser, DeleteUser},
}

// Roles.
const (
	RoleReadAccess  = "Role.ReadAccess"
	RoleWriteAccess = "Role.WriteAccess"
	RoleAdminAccess = "Role.AdminAccess"
)

// RoleIRI returns the IRI of a role individual such as RoleAdminAccess.
func RoleIRI(role string) string { return vocab.ObjectNamespace + role }

// scopeImplications is the scope class hierarchy.
var scopeImplications = map[string][]string{
	vocab.ClassCluster: {vocab.ClassOrg, vocab.ClassGroup, vocab.ClassPolicy, vocab.ClassUser},
	vocab.ClassOrg:     {vocab.ClassRepo},
	vocab.ClassRepo:    {vocab.ClassBranch, vocab.ClassLock, vocab.ClassDiff, vocab.ClassCommit},
}

// Definitions returns the triples of the access-control definitions graph:
// permissions and their implications, roles, and the scope class hierarchy.
func Definitions() []sparql.Pattern {
	var out []sparql.Pattern
	typ := sparql.IRI(vocab.RDFType)
	implies := sparql.IRI(vocab.Implies)
	permits := sparql.IRI(vocab.Permits)

	read := sparql.IRI(RoleIRI(RoleReadAccess))
	write := sparql.IRI(RoleIRI(RoleWriteAccess))
	admin := sparql.IRI(RoleIRI(RoleAdminAccess))

	for _, r := range []sparql.IRI{read, write, admin} {
		out = append(out, sparql.T(r, typ, sparql.IRI(vocab.ClassRole)))
	}
	out = append(out,
		sparql.T(admin, implies, write),
		sparql.T(write, implies, read),
	)

	perm := func(p Permission) sparql.IRI { return sparql.IRI(p.IRI()) }
	declare := func(p Permission) {
		out = append(out, sparql.T(perm(p), typ, sparql.IRI(vocab.ClassPermission)))
	}

	for _, r := range resources {
		for _, p := range []Permission{r.create, r.read, r.update, r.delete} {
			declare(p)
		}
		out = append(out,
			sparql.T(perm(r.delete), implies, perm(r.update)),
			sparql.T(perm(r.update), implies, perm(r.read)),
			sparql.T(read, permits, perm(r.read)),
			sparql.T(write, permits, perm(r.create)),
			sparql.T(write, permits, perm(r.update)),
			sparql.T(admin, permits, perm(r.delete)),
		)
	}
	declare(ReadCommit)
	out = append(out, sparql.T(read, permits, perm(ReadCommit)))

	for _, from := range []string{vocab.ClassCluster, vocab.ClassOrg, vocab.ClassRepo} {
		for _, to := range scopeImplications[from] {
			out = append(out, sparql.T(sparql.IRI(from), implies, sparql.IRI(to)))
		}
	}
	return out
}
