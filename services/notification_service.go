package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"plantPalAPI/internal/achievement"
	"plantPalAPI/internal/notification"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PushProvider delivers a notification to a user's registered devices.
// FCM implements this; the service works without one.
type PushProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

type NotificationService struct {
	db           *pgxpool.Pool
	pushProvider PushProvider
}

func NewNotificationService(db *pgxpool.Pool) *NotificationService {
	return &NotificationService{db: db}
}

func (s *NotificationService) SetPushProvider(p PushProvider) {
	s.pushProvider = p
}

func (s *NotificationService) getUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("user not found")
		}
		return uuid.Nil, fmt.Errorf("failed to get user: %w", err)
	}
	return userID, nil
}

// CreateNotification inserts an in-app notification row and pushes it to
// the user's devices when a provider is configured.
func (s *NotificationService) CreateNotification(ctx context.Context, userID uuid.UUID, notifType notification.NotificationType, title, message string, data map[string]any) (*notification.Notification, error) {
	dataJSON, _ := json.Marshal(data)

	query := `
	INSERT INTO notifications (id, user_id, type, title, message, is_read, data)
	VALUES ($1, $2, $3, $4, $5, false, $6)
	RETURNING id, user_id, type, title, message, is_read, created_at
	`

	notif := &notification.Notification{Data: data}
	err := s.db.QueryRow(ctx, query, uuid.New(), userID, notifType, title, message, dataJSON).Scan(
		&notif.ID,
		&notif.UserID,
		&notif.Type,
		&notif.Title,
		&notif.Message,
		&notif.IsRead,
		&notif.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	if s.pushProvider != nil {
		go s.push(context.WithoutCancel(ctx), userID, title, message, data)
	}

	return notif, nil
}

func (s *NotificationService) push(ctx context.Context, userID uuid.UUID, title, message string, data map[string]any) {
	tokens, err := s.deviceTokens(ctx, userID)
	if err != nil {
		log.Printf("Push: failed to load device tokens for %s: %v", userID, err)
		return
	}
	if err := s.pushProvider.SendPush(ctx, tokens, title, message, data); err != nil {
		log.Printf("Push: delivery failed for %s: %v", userID, err)
	}
}

func (s *NotificationService) deviceTokens(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx, `SELECT token, platform FROM device_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.Token, &t.Platform); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// NotifyAchievements fans newly unlocked achievements out as
// notifications. Failures are logged, never propagated: an unlock must
// not fail because a notification could not be written.
func (s *NotificationService) NotifyAchievements(ctx context.Context, userID uuid.UUID, achievements []*achievement.Achievement) {
	for _, ach := range achievements {
		_, err := s.CreateNotification(ctx, userID, notification.NotificationAchievement,
			"Achievement unlocked!",
			fmt.Sprintf("%s %s — %d points", ach.Icon, ach.Name, ach.PointsAwarded),
			map[string]any{"achievement_id": ach.ID.String(), "points_awarded": ach.PointsAwarded},
		)
		if err != nil {
			log.Printf("NotifyAchievements: %v", err)
		}
	}
}

func (s *NotificationService) GetNotifications(ctx context.Context, clerkID string) (*notification.NotificationListResponse, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT id, user_id, type, title, message, is_read, data, created_at
	FROM notifications
	WHERE user_id = $1
	ORDER BY created_at DESC
	LIMIT 100
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	defer rows.Close()

	resp := &notification.NotificationListResponse{}
	for rows.Next() {
		notif := &notification.Notification{}
		var dataJSON []byte
		err := rows.Scan(
			&notif.ID,
			&notif.UserID,
			&notif.Type,
			&notif.Title,
			&notif.Message,
			&notif.IsRead,
			&dataJSON,
			&notif.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		json.Unmarshal(dataJSON, &notif.Data)
		resp.Notifications = append(resp.Notifications, notif)
		if !notif.IsRead {
			resp.UnreadCount++
		}
	}

	return resp, rows.Err()
}

func (s *NotificationService) GetUnreadCount(ctx context.Context, clerkID string) (int, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return 0, err
	}

	var count int
	err = s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = false`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID uuid.UUID, clerkID string) error {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(ctx,
		`UPDATE notifications SET is_read = true WHERE id = $1 AND user_id = $2`,
		notificationID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("notification not found")
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, clerkID string) error {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx,
		`UPDATE notifications SET is_read = true WHERE user_id = $1 AND is_read = false`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notifications as read: %w", err)
	}
	return nil
}

func (s *NotificationService) RegisterDevice(ctx context.Context, clerkID string, req notification.RegisterDeviceRequest) error {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO device_tokens (user_id, token, platform)
	VALUES ($1, $2, $3)
	ON CONFLICT (token) DO UPDATE SET user_id = $1, platform = $3, updated_at = NOW()
	`

	if _, err := s.db.Exec(ctx, query, userID, req.Token, req.Platform); err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}
