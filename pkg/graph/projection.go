package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/coreplane/unify/pkg/models"
	"github.com/coreplane/unify/pkg/normalizers"
	"github.com/coreplane/unify/pkg/tracing"
)

// Projection mirrors unified customers as :Customer nodes and links
// customers that share an identifying key. The graph is a derived view; the
// relational store stays the system of record.
type Projection struct {
	client *Client
	logger ectologger.Logger
}

// NewProjection creates a new customer graph projection
func NewProjection(client *Client, logger ectologger.Logger) *Projection {
	return &Projection{
		client: client,
		logger: logger,
	}
}

// sharedKeyEdges maps a node property to the relationship linking customers
// that carry the same value for it.
var sharedKeyEdges = []struct {
	Property     string
	Relationship string
}{
	{"document_normalized", "SHARES_DOCUMENT"},
	{"email_normalized", "SHARES_EMAIL"},
	{"phone_normalized", "SHARES_PHONE"},
}

// Upsert creates or refreshes the node for a customer and its shared-key
// edges.
func (p *Projection) Upsert(ctx context.Context, customer *models.UnifiedCustomer) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Projection.Upsert")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"customer_id": customer.ID,
	})

	props := map[string]any{
		"id":               customer.ID,
		"name":             customer.Data.Name,
		"city":             customer.Data.City,
		"state":            customer.Data.State,
		"source_count":     len(customer.Sources),
		"confidence_score": customer.ConfidenceScore,
		"created_at":       customer.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":       customer.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if v := normalizers.Document(customer.Data.Document); v != "" {
		props["document_normalized"] = v
	}
	if v := normalizers.Email(customer.Data.Email); v != "" {
		props["email_normalized"] = v
	}
	if v := normalizers.Phone(customer.Data.Phone); v != "" {
		props["phone_normalized"] = v
	}

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `
			MERGE (c:Customer {id: $id})
			SET c = $props
		`, map[string]any{
			"id":    customer.ID,
			"props": props,
		})
		if err != nil {
			return nil, err
		}
		if _, err := result.Consume(ctx); err != nil {
			return nil, err
		}

		for _, edge := range sharedKeyEdges {
			value, ok := props[edge.Property]
			if !ok {
				continue
			}

			cypher := fmt.Sprintf(`
				MATCH (a:Customer {id: $id})
				MATCH (b:Customer)
				WHERE b.id <> $id AND b.%s = $value
				MERGE (a)-[:%s]-(b)
			`, edge.Property, edge.Relationship)

			result, err := tx.Run(ctx, cypher, map[string]any{
				"id":    customer.ID,
				"value": value,
			})
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
		log.WithError(err).Error("Failed to upsert customer in graph")
		return fmt.Errorf("failed to upsert customer in graph: %w", err)
	}

	log.Debug("Upserted customer in graph")
	return nil
}

// Delete removes a customer node and its edges.
func (p *Projection) Delete(ctx context.Context, customerID string) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Projection.Delete")
	defer span.End()

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `
			MATCH (c:Customer {id: $id})
			DETACH DELETE c
		`, map[string]any{"id": customerID})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to delete customer in graph")
		return fmt.Errorf("failed to delete customer in graph: %w", err)
	}

	return nil
}

// RelatedCustomer is a customer reachable through a shared identifying key.
type RelatedCustomer struct {
	CustomerID   string `json:"customer_id"`
	Relationship string `json:"relationship"`
}

// Related returns the customers linked to the given one by shared keys.
func (p *Projection) Related(ctx context.Context, customerID string) ([]RelatedCustomer, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Projection.Related")
	defer span.End()

	result, err := p.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `
			MATCH (a:Customer {id: $id})-[r]-(b:Customer)
			RETURN DISTINCT b.id AS id, type(r) AS relationship
		`, map[string]any{"id": customerID})
		if err != nil {
			return nil, err
		}

		var related []RelatedCustomer
		for result.Next(ctx) {
			record := result.Record()
			id, _ := record.Get("id")
			relationship, _ := record.Get("relationship")
			related = append(related, RelatedCustomer{
				CustomerID:   fmt.Sprintf("%v", id),
				Relationship: fmt.Sprintf("%v", relationship),
			})
		}
		return related, nil
	})

	if err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to query related customers")
		return nil, fmt.Errorf("failed to query related customers: %w", err)
	}

	related, _ := result.([]RelatedCustomer)
	return related, nil
}
