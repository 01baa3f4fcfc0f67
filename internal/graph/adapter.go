// Package graph implements the Neo4j property-graph adapter: schema
// constraints, asset and CVE upserts, the IP/subnet hierarchy synchronizer,
// centrality computation, and age-based cleanup.
package graph

import (
	"context"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/resilmesh/casm/pkg/config"
	"github.com/resilmesh/casm/pkg/faults"
	"github.com/resilmesh/casm/pkg/logger"
)

// retention is the ISO-8601 duration after which lifecycle-closed edges are
// reaped by the cleaner.
const retention = "P21D"

// recordType aliases the driver record so query-result helpers stay local
// to this package.
type recordType = neo4j.Record

// Adapter provides typed access to the property graph.
type Adapter struct {
	driver neo4j.DriverWithContext
	log    *logger.Logger
}

// New connects to the graph database.
func New(cfg config.Neo4jConfig, log *logger.Logger) (*Adapter, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.Bolt, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, faults.Wrap(faults.BadInput, err, "creating Neo4j driver for %q", cfg.Bolt)
	}
	return &Adapter{driver: driver, log: log.WithComponent("graph")}, nil
}

// NewWithDriver wraps an existing driver. Used by tests.
func NewWithDriver(driver neo4j.DriverWithContext, log *logger.Logger) *Adapter {
	return &Adapter{driver: driver, log: log.WithComponent("graph")}
}

// Close releases the driver.
func (a *Adapter) Close(ctx context.Context) error {
	return a.driver.Close(ctx)
}

// run executes one query and collects its records.
func (a *Adapter) run(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	result, err := neo4j.ExecuteQuery(ctx, a.driver, query, params, neo4j.EagerResultTransformer)
	if err != nil {
		return nil, classifyError(err)
	}
	return result.Records, nil
}

// statement pairs one Cypher query with its parameters.
type statement struct {
	query  string
	params map[string]any
}

// runWrite executes the statements inside a single managed write
// transaction.
func (a *Adapter) runWrite(ctx context.Context, statements []statement) error {
	session := a.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, s := range statements {
			result, err := tx.Run(ctx, s.query, s.params)
			if err != nil {
				return nil, err
			}
			if _, err := result.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return classifyError(err)
	}
	return nil
}

// classifyError maps driver errors onto the fault taxonomy. Constraint
// violations surface as StoreConstraint; retriable cluster conditions as
// StoreTransient.
func classifyError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "ConstraintValidationFailed"),
		strings.Contains(msg, "Schema.ConstraintViolation"):
		return faults.Wrap(faults.StoreConstraint, err, "constraint violation")
	case neo4j.IsRetryable(err),
		strings.Contains(msg, "DeadlockDetected"),
		strings.Contains(msg, "TransientError"):
		return faults.Wrap(faults.StoreTransient, err, "transient store error")
	default:
		return faults.Wrap(faults.StoreTransient, err, "store query failed")
	}
}

// Now returns the second-truncated UTC timestamp stamped onto lifecycle
// edges and watermarks.
func Now() string {
	return time.Now().UTC().Truncate(time.Second).Format(time.RFC3339)
}

// InitSchema idempotently applies uniqueness constraints and indices.
// Races between concurrently starting workers are harmless: "already
// exists" errors are swallowed.
func (a *Adapter) InitSchema(ctx context.Context) error {
	constraints := []string{
		"CREATE CONSTRAINT IF NOT EXISTS FOR (n:Contact) REQUIRE n.name IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (n:DetectionSystem) REQUIRE n.name IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (p:IP) REQUIRE p.address IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (o:OrganizationUnit) REQUIRE o.name IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (n:Subnet) REQUIRE n.range IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (c:CVE) REQUIRE c.CVE_id IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (v:Vulnerability) REQUIRE v.description IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (n:Mission) REQUIRE n.name IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (n:Component) REQUIRE n.name IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (n:DomainName) REQUIRE (n.domain_name, n.tag) IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (s:NetworkService) REQUIRE (s.service, s.tag) IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (s:SoftwareVersion) REQUIRE (s.version, s.tag) IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (d:Device) REQUIRE d.name IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (h:Host) REQUIRE h.hostname IS UNIQUE",
	}

	indices := []string{
		"CREATE INDEX IF NOT EXISTS FOR (n:IP) ON (n.version, n.address)",
		"CREATE INDEX IF NOT EXISTS FOR (n:Subnet) ON (n.version, n.range)",
	}

	for _, stmt := range append(constraints, indices...) {
		if _, err := a.run(ctx, stmt, nil); err != nil {
			if strings.Contains(err.Error(), "already exists") ||
				strings.Contains(err.Error(), "EquivalentSchemaRuleAlreadyExists") {
				continue
			}
			return err
		}
	}

	// Bootstrap the default catch-all subnets.
	_, err := a.run(ctx, `
		MERGE (v4:Subnet {range: "0.0.0.0/0"}) SET v4.version = 4
		MERGE (v6:Subnet {range: "::/0"}) SET v6.version = 6`, nil)
	return err
}
