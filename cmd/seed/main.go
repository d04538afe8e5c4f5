// Command seed populates the marketplace document database with fixture
// service categories, services, work requests, and bids. It is a one-off
// development tool with no production runtime role.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"safework-backend/internal/config"
)

type ServiceCategory struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Slug        string             `bson:"slug"`
	Description string             `bson:"description"`
	IsActive    bool               `bson:"isActive"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

type Service struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	CategoryID  primitive.ObjectID `bson:"categoryId"`
	Name        string             `bson:"name"`
	Description string             `bson:"description"`
	BasePrice   float64            `bson:"basePrice"`
	Unit        string             `bson:"unit"` // "hour", "day", "job"
	IsActive    bool               `bson:"isActive"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

type WorkRequest struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	ServiceID   primitive.ObjectID `bson:"serviceId"`
	CompanyName string             `bson:"companyName"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Location    string             `bson:"location"`
	Budget      float64            `bson:"budget"`
	Status      string             `bson:"status"` // "open", "awarded", "closed"
	Deadline    time.Time          `bson:"deadline"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

type Bid struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	WorkRequestID primitive.ObjectID `bson:"workRequestId"`
	BidderName    string             `bson:"bidderName"`
	Amount        float64            `bson:"amount"`
	Message       string             `bson:"message,omitempty"`
	Status        string             `bson:"status"` // "submitted", "accepted", "rejected"
	CreatedAt     time.Time          `bson:"createdAt"`
}

var categoryFixtures = []struct {
	name, slug, description string
}{
	{"Electrical", "electrical", "Licensed electrical installation and maintenance"},
	{"Scaffolding", "scaffolding", "Scaffold erection, inspection and dismantling"},
	{"Welding", "welding", "Certified structural and pipe welding"},
	{"HVAC", "hvac", "Heating, ventilation and air conditioning services"},
	{"Crane Operations", "crane-operations", "Mobile and tower crane hire with operators"},
}

var serviceFixtures = map[string][]struct {
	name, unit  string
	basePrice   float64
	description string
}{
	"electrical": {
		{"Switchboard upgrade", "job", 2400, "Replace and certify a commercial switchboard"},
		{"Site wiring inspection", "hour", 120, "Periodic inspection of fixed site wiring"},
	},
	"scaffolding": {
		{"Facade scaffold erection", "day", 1800, "Erect facade scaffolding to site plan"},
		{"Weekly scaffold inspection", "job", 350, "Statutory seven-day scaffold check"},
	},
	"welding": {
		{"Structural steel welding", "hour", 145, "On-site structural welding, certified welds"},
		{"Pipe welding", "hour", 160, "Pressure pipe welding with x-ray sign-off"},
	},
	"hvac": {
		{"Ducted unit installation", "job", 5200, "Install and commission a ducted unit"},
	},
	"crane-operations": {
		{"Mobile crane with operator", "day", 3400, "Up to 60t mobile crane, operator included"},
	},
}

var companyNames = []string{
	"Northside Construction", "Harbour Engineering", "Apex Industrial",
	"Meridian Builders", "Crestline Infrastructure",
}

var bidderNames = []string{
	"Elena Vasquez", "Tom Okafor", "Priya Raman", "Marcus Hale", "Sofia Lindgren",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[seed] failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.SeedDB.URI))
	if err != nil {
		log.Fatalf("[seed] failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	if err := client.Ping(ctx, nil); err != nil {
		log.Fatalf("[seed] MongoDB ping failed: %v", err)
	}

	db := client.Database(cfg.SeedDB.Database)
	rng := rand.New(rand.NewSource(42))
	now := time.Now()

	// Start from a clean slate so reruns stay deterministic.
	for _, name := range []string{"service_categories", "services", "work_requests", "bids"} {
		if err := db.Collection(name).Drop(ctx); err != nil {
			log.Fatalf("[seed] failed to drop %s: %v", name, err)
		}
	}

	categories := buildCategories(now)
	if err := insertAll(ctx, db.Collection("service_categories"), toDocs(categories)); err != nil {
		log.Fatalf("[seed] failed to insert categories: %v", err)
	}

	services := buildServices(categories, now)
	if err := insertAll(ctx, db.Collection("services"), toDocs(services)); err != nil {
		log.Fatalf("[seed] failed to insert services: %v", err)
	}

	requests := buildWorkRequests(services, rng, now)
	if err := insertAll(ctx, db.Collection("work_requests"), toDocs(requests)); err != nil {
		log.Fatalf("[seed] failed to insert work requests: %v", err)
	}

	bids := buildBids(requests, rng, now)
	if err := insertAll(ctx, db.Collection("bids"), toDocs(bids)); err != nil {
		log.Fatalf("[seed] failed to insert bids: %v", err)
	}

	log.Printf("[seed] done: %d categories, %d services, %d work requests, %d bids",
		len(categories), len(services), len(requests), len(bids))
}

func buildCategories(now time.Time) []ServiceCategory {
	out := make([]ServiceCategory, 0, len(categoryFixtures))
	for _, f := range categoryFixtures {
		out = append(out, ServiceCategory{
			ID:          primitive.NewObjectID(),
			Name:        f.name,
			Slug:        f.slug,
			Description: f.description,
			IsActive:    true,
			CreatedAt:   now,
		})
	}
	return out
}

func buildServices(categories []ServiceCategory, now time.Time) []Service {
	var out []Service
	for _, cat := range categories {
		for _, f := range serviceFixtures[cat.Slug] {
			out = append(out, Service{
				ID:          primitive.NewObjectID(),
				CategoryID:  cat.ID,
				Name:        f.name,
				Description: f.description,
				BasePrice:   f.basePrice,
				Unit:        f.unit,
				IsActive:    true,
				CreatedAt:   now,
			})
		}
	}
	return out
}

func buildWorkRequests(services []Service, rng *rand.Rand, now time.Time) []WorkRequest {
	statuses := []string{"open", "open", "open", "awarded", "closed"}
	var out []WorkRequest
	for i, svc := range services {
		company := companyNames[i%len(companyNames)]
		out = append(out, WorkRequest{
			ID:          primitive.NewObjectID(),
			ServiceID:   svc.ID,
			CompanyName: company,
			Title:       fmt.Sprintf("%s: %s", company, svc.Name),
			Description: fmt.Sprintf("Requesting %q at our main site. %s", svc.Name, svc.Description),
			Location:    "Site " + string(rune('A'+i%4)),
			Budget:      svc.BasePrice * (1.2 + rng.Float64()*0.8),
			Status:      statuses[i%len(statuses)],
			Deadline:    now.AddDate(0, 0, 14+rng.Intn(45)),
			CreatedAt:   now.AddDate(0, 0, -rng.Intn(30)),
		})
	}
	return out
}

func buildBids(requests []WorkRequest, rng *rand.Rand, now time.Time) []Bid {
	var out []Bid
	for _, req := range requests {
		if req.Status == "closed" {
			continue
		}
		n := 1 + rng.Intn(3)
		for j := 0; j < n; j++ {
			status := "submitted"
			if req.Status == "awarded" && j == 0 {
				status = "accepted"
			}
			out = append(out, Bid{
				ID:            primitive.NewObjectID(),
				WorkRequestID: req.ID,
				BidderName:    bidderNames[rng.Intn(len(bidderNames))],
				Amount:        req.Budget * (0.8 + rng.Float64()*0.3),
				Message:       "Available to start within two weeks.",
				Status:        status,
				CreatedAt:     req.CreatedAt.AddDate(0, 0, 1+rng.Intn(5)),
			})
		}
	}
	return out
}

func insertAll(ctx context.Context, coll *mongo.Collection, docs []interface{}) error {
	if len(docs) == 0 {
		return nil
	}
	_, err := coll.InsertMany(ctx, docs)
	return err
}

func toDocs[T any](items []T) []interface{} {
	docs := make([]interface{}, len(items))
	for i, item := range items {
		docs[i] = item
	}
	return docs
}
