package cron

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"safework-backend/internal/database"
)

// StartSweeper schedules the daily expiry sweep (and runs one immediately).
// The sweep owns the approved → expired transition: nothing else in the
// system flips that status. Returns the scheduler so callers can Stop it on
// shutdown.
func StartSweeper(db database.Service) *cron.Cron {
	c := cron.New()
	if _, err := c.AddFunc("15 2 * * *", func() { runSweep(db) }); err != nil {
		log.Printf("[cron] failed to schedule expiry sweep: %v", err)
		return c
	}
	c.Start()

	go runSweep(db)

	log.Println("[cron] expiry sweep scheduled, runs daily at 02:15")
	return c
}

// runSweep expires overdue verifications and notifies owners of upcoming
// expiries. Notifications are de-duplicated per (user, kind, verification)
// per day.
func runSweep(db database.Service) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool := db.GetPool()

	// ─── 1. Flip approved verifications past their expiry date ───────
	rows, err := pool.Query(ctx, `
		UPDATE user_verifications uv SET status = 'expired'
		FROM company_requirements cr, verification_types vt
		WHERE uv.requirement_id = cr.id
		  AND cr.verification_type_id = vt.id
		  AND uv.status = 'approved'
		  AND uv.expiry_date IS NOT NULL
		  AND uv.expiry_date < CURRENT_DATE
		RETURNING uv.id::text, uv.user_id::text, vt.name
	`)
	if err != nil {
		log.Printf("[cron] error expiring verifications: %v", err)
		return
	}

	type expiredRow struct {
		ID     string
		UserID string
		Name   string
	}
	var expired []expiredRow
	for rows.Next() {
		var e expiredRow
		if err := rows.Scan(&e.ID, &e.UserID, &e.Name); err != nil {
			log.Printf("[cron] scan error: %v", err)
			continue
		}
		expired = append(expired, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		log.Printf("[cron] error reading expired rows: %v", err)
	}

	for _, e := range expired {
		msg := fmt.Sprintf("Your %s verification has expired and must be resubmitted.", e.Name)
		insertNotification(ctx, db, e.UserID, "expired", msg, e.ID)
	}

	// ─── 2. Warn about verifications expiring within 30 days ─────────
	warnRows, err := pool.Query(ctx, `
		SELECT uv.id::text, uv.user_id::text, vt.name,
			(uv.expiry_date - CURRENT_DATE) AS days_left
		FROM user_verifications uv
		JOIN company_requirements cr ON uv.requirement_id = cr.id
		JOIN verification_types vt ON cr.verification_type_id = vt.id
		WHERE uv.status = 'approved'
		  AND uv.expiry_date IS NOT NULL
		  AND uv.expiry_date BETWEEN CURRENT_DATE AND CURRENT_DATE + INTERVAL '30 days'
	`)
	if err != nil {
		log.Printf("[cron] error querying expiring verifications: %v", err)
		return
	}
	defer warnRows.Close()

	warned := 0
	for warnRows.Next() {
		var id, userID, name string
		var daysLeft int
		if err := warnRows.Scan(&id, &userID, &name, &daysLeft); err != nil {
			log.Printf("[cron] scan error: %v", err)
			continue
		}
		msg := fmt.Sprintf("Your %s verification expires in %d days. Renew it promptly.", name, daysLeft)
		if insertNotification(ctx, db, userID, "expiring", msg, id) {
			warned++
		}
	}

	log.Printf("[cron] expiry sweep complete: %d expired, %d expiry warnings", len(expired), warned)
}

// insertNotification writes one notification unless the same (user, kind,
// ref) was already notified today. Reports whether a row was inserted.
func insertNotification(ctx context.Context, db database.Service, userID, kind, message, refID string) bool {
	pool := db.GetPool()

	var exists bool
	_ = pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM notifications
			WHERE user_id = $1
			  AND kind = $2
			  AND ref_id = $3
			  AND created_at::date = CURRENT_DATE
		)
	`, userID, kind, refID).Scan(&exists)
	if exists {
		return false
	}

	_, err := pool.Exec(ctx, `
		INSERT INTO notifications (user_id, kind, message, ref_id)
		VALUES ($1, $2, $3, $4)
	`, userID, kind, message, refID)
	if err != nil {
		log.Printf("[cron] insert notification error: %v", err)
		return false
	}
	return true
}
