package db

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

var Conn *pgxpool.Pool

// Init connects to Postgres and makes sure the schema exists.
func Init(dsn string) {
	var err error
	Conn, err = pgxpool.New(context.Background(), dsn)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}

	if err = Conn.Ping(context.Background()); err != nil {
		log.Fatalf("Unable to ping database: %v\n", err)
	}

	log.Println("Connected to Postgres successfully")

	ensureUsersTable()
	ensureProfilesTable()
	ensureServicesTable()
	ensureOrdersTable()
	ensureMessagesTable()
	ensureReviewsTable()
	ensurePayoutTables()
	ensureWebhookEventsTable()
	ensureNotificationsTable()
}

func ensureUsersTable() {
	_, err := Conn.Exec(context.Background(), `
        CREATE TABLE IF NOT EXISTS users (
            id UUID PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            can_buy BOOLEAN NOT NULL DEFAULT TRUE,
            can_sell BOOLEAN NOT NULL DEFAULT FALSE,
            stripe_account_id TEXT UNIQUE,
            stripe_onboarding_complete BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`)
	if err != nil {
		log.Printf("failed to ensure users table: %v", err)
	}
}

func ensureProfilesTable() {
	_, err := Conn.Exec(context.Background(), `
        CREATE TABLE IF NOT EXISTS profiles (
            id UUID PRIMARY KEY,
            user_id UUID NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
            bio TEXT NOT NULL DEFAULT '',
            instrument TEXT NOT NULL DEFAULT '',
            price_per_minute BIGINT,
            is_available BOOLEAN NOT NULL DEFAULT TRUE,
            profile_image TEXT NOT NULL DEFAULT '',
            audio_samples TEXT[] NOT NULL DEFAULT '{}',
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`)
	if err != nil {
		log.Printf("failed to ensure profiles table: %v", err)
	}
}

func ensureServicesTable() {
	_, err := Conn.Exec(context.Background(), `
        CREATE TABLE IF NOT EXISTS services (
            id UUID PRIMARY KEY,
            profile_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
            title TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            included TEXT[] NOT NULL DEFAULT '{}',
            excluded TEXT[] NOT NULL DEFAULT '{}',
            base_price BIGINT NOT NULL,
            credit_required TEXT NOT NULL DEFAULT '',
            credit_instructions TEXT NOT NULL DEFAULT '',
            is_active BOOLEAN NOT NULL DEFAULT TRUE,
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_services_profile ON services(profile_id);
    `)
	if err != nil {
		log.Printf("failed to ensure services table: %v", err)
	}
}

func ensureOrdersTable() {
	_, err := Conn.Exec(context.Background(), `
        CREATE TABLE IF NOT EXISTS orders (
            id UUID PRIMARY KEY,
            buyer_id UUID NOT NULL REFERENCES users(id),
            seller_id UUID NOT NULL REFERENCES users(id),
            title TEXT NOT NULL,
            tempo TEXT NOT NULL DEFAULT '',
            notes TEXT NOT NULL DEFAULT '',
            length_minutes INTEGER NOT NULL,
            total_price BIGINT NOT NULL,
            sheet_music_url TEXT NOT NULL DEFAULT '',
            audio_file_url TEXT NOT NULL DEFAULT '',
            intended_use TEXT NOT NULL DEFAULT '',
            usage_type TEXT NOT NULL CHECK (usage_type IN (
                'PERSONAL', 'COMMERCIAL', 'EDUCATIONAL', 'BROADCAST',
                'STREAMING', 'LIVE_PERFORMANCE', 'OTHER'
            )),
            status TEXT NOT NULL DEFAULT 'PENDING' CHECK (status IN (
                'PENDING', 'ACCEPTED', 'IN_PROGRESS', 'COMPLETED', 'CANCELLED'
            )),
            payment_intent_id TEXT NOT NULL DEFAULT '',
            transfer_group TEXT NOT NULL DEFAULT '',
            transfer_id TEXT NOT NULL DEFAULT '',
            platform_fee BIGINT NOT NULL DEFAULT 0,
            seller_amount BIGINT NOT NULL DEFAULT 0,
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_orders_buyer ON orders(buyer_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_orders_seller ON orders(seller_id, status);
        CREATE INDEX IF NOT EXISTS idx_orders_payment_intent ON orders(payment_intent_id);
    `)
	if err != nil {
		log.Printf("failed to ensure orders table: %v", err)
	}
}

func ensureMessagesTable() {
	_, err := Conn.Exec(context.Background(), `
        CREATE TABLE IF NOT EXISTS messages (
            id UUID PRIMARY KEY,
            order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
            sender_id UUID NOT NULL REFERENCES users(id),
            recipient_id UUID NOT NULL REFERENCES users(id),
            content TEXT NOT NULL,
            read_at TIMESTAMP WITH TIME ZONE,
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_messages_order_created ON messages(order_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_messages_unread ON messages(order_id, recipient_id) WHERE read_at IS NULL;
    `)
	if err != nil {
		log.Printf("failed to ensure messages table: %v", err)
	}
}

func ensureReviewsTable() {
	_, err := Conn.Exec(context.Background(), `
        CREATE TABLE IF NOT EXISTS reviews (
            id UUID PRIMARY KEY,
            order_id UUID NOT NULL UNIQUE REFERENCES orders(id) ON DELETE CASCADE,
            reviewer_id UUID NOT NULL REFERENCES users(id),
            seller_id UUID NOT NULL REFERENCES users(id),
            rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
            comment TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_reviews_seller ON reviews(seller_id);
    `)
	if err != nil {
		log.Printf("failed to ensure reviews table: %v", err)
	}
}

// ensurePayoutTables creates the payouts table plus the payout_orders join
// table. The PRIMARY KEY on payout_orders.order_id is the serialization
// point that keeps an order from being claimed by two payouts.
func ensurePayoutTables() {
	_, err := Conn.Exec(context.Background(), `
        CREATE TABLE IF NOT EXISTS payouts (
            id UUID PRIMARY KEY,
            seller_id UUID NOT NULL REFERENCES users(id),
            amount BIGINT NOT NULL,
            status TEXT NOT NULL DEFAULT 'PENDING' CHECK (status IN (
                'PENDING', 'PROCESSING', 'PAID', 'FAILED'
            )),
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
        );
        CREATE TABLE IF NOT EXISTS payout_orders (
            order_id UUID PRIMARY KEY REFERENCES orders(id),
            payout_id UUID NOT NULL REFERENCES payouts(id) ON DELETE CASCADE
        );
        CREATE INDEX IF NOT EXISTS idx_payouts_seller ON payouts(seller_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_payout_orders_payout ON payout_orders(payout_id);
    `)
	if err != nil {
		log.Printf("failed to ensure payout tables: %v", err)
	}
}

// ensureWebhookEventsTable tracks processed provider event ids so retried
// deliveries are acknowledged without reprocessing.
func ensureWebhookEventsTable() {
	_, err := Conn.Exec(context.Background(), `
        CREATE TABLE IF NOT EXISTS webhook_events (
            event_id TEXT PRIMARY KEY,
            event_type TEXT NOT NULL,
            processed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`)
	if err != nil {
		log.Printf("failed to ensure webhook_events table: %v", err)
	}
}

func ensureNotificationsTable() {
	_, err := Conn.Exec(context.Background(), `
        CREATE TABLE IF NOT EXISTS notifications (
            id UUID PRIMARY KEY,
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            type TEXT NOT NULL,
            title TEXT NOT NULL,
            body TEXT NOT NULL DEFAULT '',
            reference UUID NULL,
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
            read_at TIMESTAMP WITH TIME ZONE NULL
        );
        CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_notifications_user_unread ON notifications(user_id) WHERE read_at IS NULL;
    `)
	if err != nil {
		log.Printf("failed to ensure notifications table: %v", err)
	}
}
