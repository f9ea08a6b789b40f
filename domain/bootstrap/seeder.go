// Package bootstrap seeds the cluster on startup: the cluster node, the
// access-control definitions and an admin policy for the root user.
package bootstrap

import (
	"context"
	"log/slog"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/config"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/txn"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/access"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/iri"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/logger"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/sparql"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/vocab"
)

// RootPolicyID identifies the policy granting the root user admin access.
const RootPolicyID = "root-admin"

// Seeder writes the bootstrap data.
type Seeder struct {
	txns *txn.Manager
	cfg  config.BootstrapConfig
	log  *slog.Logger
}

// NewSeeder creates a seeder
func NewSeeder(txns *txn.Manager, cfg *config.Config, log *slog.Logger) *Seeder {
	return &Seeder{
		txns: txns,
		cfg:  cfg.Bootstrap,
		log:  log.With(logger.Scope("bootstrap")),
	}
}

// Seed replaces the definitions graph and declares the cluster, the root user
// and the root policy. The user and policy are only written when absent, so
// edits made through the API survive a restart.
func (s *Seeder) Seed(ctx context.Context) error {
	tx := s.txns.Begin(iri.IDs{Policy: RootPolicyID}, access.Actor{User: s.cfg.RootUser}, txn.Meta{Method: "BOOTSTRAP"})
	defer tx.Close(ctx)

	terms := tx.IRI.Terms()
	graph := func(name string) sparql.Term { return terms.PL("m-graph", name) }
	typ := sparql.IRI(vocab.RDFType)
	etag := sparql.Lit(tx.ID)

	cluster := terms.P("m")
	user := terms.P("mu")
	policy := terms.P("mp")
	if err := terms.Err(); err != nil {
		return err
	}

	ops := []sparql.Operation{
		sparql.Drop{Graph: graph("AccessControl.Definitions"), Silent: true},
		sparql.InsertData{Body: []sparql.Pattern{
			sparql.Graph(graph("AccessControl.Definitions"), access.Definitions()...),
			sparql.Graph(graph("Cluster"), sparql.T(cluster, typ, sparql.IRI(vocab.ClassCluster))),
		}},
		absent(graph("AccessControl.Agents"), user, vocab.ClassUser,
			sparql.T(user, sparql.IRI(vocab.ID), sparql.Lit(s.cfg.RootUser)),
			sparql.T(user, sparql.IRI(vocab.ETag), etag),
		),
		absent(graph("AccessControl.Policies"), policy, vocab.ClassPolicy,
			sparql.T(policy, sparql.IRI(vocab.ID), sparql.Lit(RootPolicyID)),
			sparql.T(policy, sparql.IRI(vocab.Subject), user),
			sparql.T(policy, sparql.IRI(vocab.Scope), cluster),
			sparql.T(policy, sparql.IRI(vocab.Role), sparql.IRI(access.RoleIRI(access.RoleAdminAccess))),
			sparql.T(policy, sparql.IRI(vocab.ETag), etag),
		),
	}
	if err := tx.Update(ctx, ops...); err != nil {
		return err
	}
	s.log.Info("cluster seeded", slog.String("root_user", s.cfg.RootUser))
	return nil
}

// absent inserts a typed node and its triples unless the node is already
// declared in graph.
func absent(graph, node sparql.Term, class string, triples ...sparql.Pattern) sparql.Modify {
	decl := sparql.T(node, sparql.IRI(vocab.RDFType), sparql.IRI(class))
	return sparql.Modify{
		Insert: []sparql.Pattern{sparql.Graph(graph, append([]sparql.Pattern{decl}, triples...)...)},
		Where:  []sparql.Pattern{sparql.Filter(sparql.NotExists(sparql.Graph(graph, decl)))},
	}
}
