package testutil

import (
	"time"

	"go-retail-pivot/internal/model"
)

// StatusRecords is the three-order collection used across pivot tests:
// two completed orders totalling 150 and one cancelled order of 20.
func StatusRecords() []model.Record {
	return []model.Record{
		{"status": "completed", "total": 100},
		{"status": "completed", "total": 50},
		{"status": "cancelled", "total": 20},
	}
}

// RetailRecords is a small mixed sales collection with every value type.
func RetailRecords() []model.Record {
	day := func(s string) time.Time {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			panic(err)
		}
		return t
	}
	return []model.Record{
		{"order_id": "SO-1001", "status": "completed", "channel": "store", "store": "Downtown", "region": "North",
			"category": "Audio", "brand": "Acme", "salesperson": "Dana", "total": 120.0, "margin": 30.0,
			"quantity": 2, "returned_quantity": 0, "discount": 5.0, "is_return": false, "order_date": day("2024-03-04")},
		{"order_id": "SO-1002", "status": "completed", "channel": "online", "store": "Web", "region": "North",
			"category": "Audio", "brand": "Bolt", "salesperson": "Kim", "total": 80.0, "margin": 16.0,
			"quantity": 1, "returned_quantity": 1, "discount": 0.0, "is_return": true, "order_date": day("2024-03-18")},
		{"order_id": "SO-1003", "status": "pending", "channel": "store", "store": "Downtown", "region": "South",
			"category": "Video", "brand": "Acme", "salesperson": "Dana", "total": 300.0, "margin": 90.0,
			"quantity": 1, "returned_quantity": 0, "discount": 20.0, "is_return": false, "order_date": day("2024-04-02")},
		{"order_id": "SO-1004", "status": "cancelled", "channel": "online", "store": "Web", "region": "South",
			"category": "Video", "brand": "Cove", "salesperson": "", "total": "n/a", "margin": 0.0,
			"quantity": 3, "returned_quantity": 0, "discount": 0.0, "is_return": false, "order_date": day("2024-04-20")},
	}
}
