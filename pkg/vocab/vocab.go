// Package vocab holds the namespaces and terms of the MMS ontology together with
// the standard vocabularies the gateway reserves for itself.
package vocab

// Standard namespaces.
const (
	RDF  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFS = "http://www.w3.org/2000/01/rdf-schema#"
	OWL  = "http://www.w3.org/2002/07/owl#"
	XSD  = "http://www.w3.org/2001/XMLSchema#"
	DCT  = "http://purl.org/dc/terms/"
	SH   = "http://www.w3.org/ns/shacl#"
)

// Namespace is the base IRI of the MMS ontology.
const Namespace = "https://mms.openmbee.org/rdf/ontology/"

// ObjectNamespace is the base IRI for well-known individuals (roles, permissions).
const ObjectNamespace = "https://mms.openmbee.org/rdf/objects/"

const (
	RDFType  = RDF + "type"
	RDFNil   = RDF + "nil"
	DCTTitle = DCT + "title"

	XSDString   = XSD + "string"
	XSDDateTime = XSD + "dateTime"
)

// Classes.
const (
	ClassCluster     = Namespace + "Cluster"
	ClassOrg         = Namespace + "Org"
	ClassRepo        = Namespace + "Repo"
	ClassBranch      = Namespace + "Branch"
	ClassLock        = Namespace + "Lock"
	ClassInterimLock = Namespace + "InterimLock"
	ClassDiff        = Namespace + "Diff"
	ClassCommit      = Namespace + "Commit"
	ClassPatch       = Namespace + "Patch"
	ClassLoad        = Namespace + "Load"
	ClassModel       = Namespace + "Model"
	ClassStaging     = Namespace + "Staging"
	ClassTransaction = Namespace + "Transaction"
	ClassUser        = Namespace + "User"
	ClassGroup       = Namespace + "Group"
	ClassPolicy      = Namespace + "Policy"
	ClassRole        = Namespace + "Role"
	ClassPermission  = Namespace + "Permission"
)

// Properties.
const (
	ID        = Namespace + "id"
	ETag      = Namespace + "etag"
	Created   = Namespace + "created"
	CreatedBy = Namespace + "createdBy"
	Org       = Namespace + "org"
	Repo      = Namespace + "repo"
	Ref       = Namespace + "ref"
	Commit    = Namespace + "commit"
	Parent    = Namespace + "parent"
	Data      = Namespace + "data"
	Message   = Namespace + "message"
	Submitted = Namespace + "submitted"
	Snapshot  = Namespace + "snapshot"
	Graph     = Namespace + "graph"

	DeleteBody = Namespace + "deleteBody"
	InsertBody = Namespace + "insertBody"
	WhereBody  = Namespace + "whereBody"
	LoadBody   = Namespace + "body"

	SrcRef      = Namespace + "srcRef"
	DstRef      = Namespace + "dstRef"
	SrcCommit   = Namespace + "srcCommit"
	DstCommit   = Namespace + "dstCommit"
	InsertGraph = Namespace + "insertGraph"
	DeleteGraph = Namespace + "deleteGraph"

	Subject = Namespace + "subject"
	Scope   = Namespace + "scope"
	Role    = Namespace + "role"
	Permits = Namespace + "permits"
	Implies = Namespace + "implies"
	Member  = Namespace + "member"

	Inspect            = Namespace + "inspect"
	User               = Namespace + "user"
	ServiceID          = Namespace + "serviceId"
	RequestPath        = Namespace + "requestPath"
	RequestMethod      = Namespace + "requestMethod"
	RequestBody        = Namespace + "requestBody"
	RequestContentType = Namespace + "requestContentType"
)

// ReservedNamespaces are vocabularies user-supplied statements may not use as
// predicates unless a resource explicitly allows a term.
var ReservedNamespaces = []string{RDF, RDFS, OWL, SH, Namespace}
