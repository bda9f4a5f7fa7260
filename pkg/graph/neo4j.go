package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/richxcame/claims-fraud/pkg/config"
	"github.com/richxcame/claims-fraud/pkg/logger"
	"github.com/richxcame/claims-fraud/pkg/resilience"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	deleteInsuredCypher = `
		MATCH (i:Insured {id: $id})
		DETACH DELETE i`

	mergeInsuredCypher = `
		MERGE (i:Insured {id: $id})
		SET i.name = $name, i.national_code = $national_code
		WITH i
		OPTIONAL MATCH (i)-[r:HAS_PHONE|HAS_ADDRESS]->()
		DELETE r`

	linkPhoneCypher = `
		MATCH (i:Insured {id: $id})
		MERGE (p:Phone {number: $phone})
		MERGE (i)-[:HAS_PHONE]->(p)`

	linkAddressCypher = `
		MATCH (i:Insured {id: $id})
		MERGE (a:Address {text: $address})
		MERGE (i)-[:HAS_ADDRESS]->(a)`

	overlapCypher = `
		MATCH (i:Insured {id: $id})
		OPTIONAL MATCH (i)-[:HAS_PHONE]->(:Phone)<-[:HAS_PHONE]-(phoneMate:Insured)
		WHERE phoneMate.id <> i.id
		WITH i, count(DISTINCT phoneMate) AS phone_overlaps
		OPTIONAL MATCH (i)-[:HAS_ADDRESS]->(:Address)<-[:HAS_ADDRESS]-(addressMate:Insured)
		WHERE addressMate.id <> i.id
		RETURN phone_overlaps, count(DISTINCT addressMate) AS address_overlaps`

	pruneCypher = `
		MATCH (a)
		WHERE (a:Phone OR a:Address) AND NOT (a)--()
		DELETE a
		RETURN count(*) AS pruned`
)

var schemaCypher = []string{
	"CREATE CONSTRAINT insured_id IF NOT EXISTS FOR (i:Insured) REQUIRE i.id IS UNIQUE",
	"CREATE CONSTRAINT phone_number IF NOT EXISTS FOR (p:Phone) REQUIRE p.number IS UNIQUE",
	"CREATE CONSTRAINT address_text IF NOT EXISTS FOR (a:Address) REQUIRE a.text IS UNIQUE",
}

var tracer = otel.Tracer("github.com/richxcame/claims-fraud/pkg/graph")

// Neo4jStore is the Store backed by a Neo4j database. One driver is shared by
// the whole process; every call borrows a session from its pool.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	timeout  time.Duration
	breaker  *resilience.CircuitBreaker
}

var _ Store = (*Neo4jStore)(nil)

// NewNeo4jStore connects to Neo4j, verifies connectivity and installs the
// uniqueness constraints the MERGE statements rely on.
func NewNeo4jStore(ctx context.Context, cfg *config.GraphConfig) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	s := &Neo4jStore{
		driver:   driver,
		database: cfg.Database,
		timeout:  timeout,
		breaker: resilience.NewCircuitBreaker(
			resilience.SettingsFor("neo4j", cfg.Breaker),
			resilience.GracefulDegradation("neo4j"),
		),
	}

	if err := s.Ping(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}

	logger.Info("connected to neo4j", zap.String("uri", cfg.URI))
	return s, nil
}

// EnsureSchema creates the uniqueness constraints if they do not exist.
func (s *Neo4jStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaCypher {
		_, err := s.execute(ctx, "ensure_schema", neo4j.AccessModeWrite, func(tx neo4j.ManagedTransaction) (any, error) {
			return runAndConsume(ctx, tx, stmt, nil)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

type statement struct {
	cypher string
	params map[string]any
}

// upsertStatements replaces an insured node's attribute links in place. The
// MERGE on the constrained id locks the node, so concurrent upserts of the
// same id from any process serialize and the last commit wins.
func upsertStatements(n InsuredNode) []statement {
	n = n.normalized()
	params := map[string]any{
		"id":            n.ID,
		"name":          n.Name,
		"national_code": n.NationalCode,
		"phone":         n.Phone,
		"address":       n.Address,
	}

	stmts := []statement{{mergeInsuredCypher, params}}
	if n.Phone != "" {
		stmts = append(stmts, statement{linkPhoneCypher, params})
	}
	if n.Address != "" {
		stmts = append(stmts, statement{linkAddressCypher, params})
	}
	return stmts
}

// UpsertInsured implements Store. The node merge and both attribute merges
// run in one write transaction, so a failure leaves the previous state intact.
func (s *Neo4jStore) UpsertInsured(ctx context.Context, n InsuredNode) error {
	stmts := upsertStatements(n)
	_, err := s.execute(ctx, "upsert_insured", neo4j.AccessModeWrite, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, st := range stmts {
			if _, err := runAndConsume(ctx, tx, st.cypher, st.params); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}, attribute.Int64("insured.id", n.ID))
	return err
}

// DeleteInsured implements Store.
func (s *Neo4jStore) DeleteInsured(ctx context.Context, id int64) error {
	_, err := s.execute(ctx, "delete_insured", neo4j.AccessModeWrite, func(tx neo4j.ManagedTransaction) (any, error) {
		return runAndConsume(ctx, tx, deleteInsuredCypher, map[string]any{"id": id})
	}, attribute.Int64("insured.id", id))
	return err
}

// ComputeOverlapScore implements Store.
func (s *Neo4jStore) ComputeOverlapScore(ctx context.Context, id int64) (Overlap, error) {
	res, err := s.execute(ctx, "compute_overlap", neo4j.AccessModeRead, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, overlapCypher, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}
		if !result.Next(ctx) {
			return Overlap{}, result.Err()
		}
		record := result.Record()
		return Overlap{
			PhoneOverlaps:   intValue(record, "phone_overlaps"),
			AddressOverlaps: intValue(record, "address_overlaps"),
		}, nil
	}, attribute.Int64("insured.id", id))
	if err != nil {
		return Overlap{}, err
	}
	overlap, _ := res.(Overlap)
	return overlap, nil
}

// PruneOrphanAttributes implements Store.
func (s *Neo4jStore) PruneOrphanAttributes(ctx context.Context) (int, error) {
	res, err := s.execute(ctx, "prune_attributes", neo4j.AccessModeWrite, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, pruneCypher, nil)
		if err != nil {
			return nil, err
		}
		if !result.Next(ctx) {
			return 0, result.Err()
		}
		return intValue(result.Record(), "pruned"), nil
	})
	if err != nil {
		return 0, err
	}
	pruned, _ := res.(int)
	return pruned, nil
}

// Ping implements Store.
func (s *Neo4jStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("verify connectivity: %w: %w", ErrUnavailable, err)
	}
	return nil
}

// Close implements Store.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Neo4jStore) execute(
	ctx context.Context,
	op string,
	mode neo4j.AccessMode,
	work neo4j.ManagedTransactionWork,
	attrs ...attribute.KeyValue,
) (any, error) {
	ctx, span := tracer.Start(ctx, "graph."+op)
	defer span.End()
	span.SetAttributes(attrs...)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
		defer func() {
			if cerr := session.Close(ctx); cerr != nil {
				logger.Debug("neo4j session close failed", zap.Error(cerr))
			}
		}()
		if mode == neo4j.AccessModeRead {
			return session.ExecuteRead(ctx, work)
		}
		return session.ExecuteWrite(ctx, work)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, op)
		return nil, fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
	return result, nil
}

func runAndConsume(ctx context.Context, tx neo4j.ManagedTransaction, cypher string, params map[string]any) (any, error) {
	result, err := tx.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	_, err = result.Consume(ctx)
	return nil, err
}

func intValue(record *neo4j.Record, key string) int {
	raw, ok := record.Get(key)
	if !ok {
		return 0
	}
	switch v := raw.(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
