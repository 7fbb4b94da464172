package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

// CommunityFilter narrows the top-level message listing.
type CommunityFilter struct {
	Topic    string
	Page     int
	PageSize int
}

// ReactionCount is the number of reactions of one type on one message.
type ReactionCount struct {
	MessageID    uint
	ReactionType string
	Count        int64
}

// CommunityRepository persists community messages, reactions and read markers.
type CommunityRepository interface {
	Create(ctx context.Context, message *models.CommunityMessage) error
	FindByID(ctx context.Context, id uint) (models.CommunityMessage, error)
	ListTopLevel(ctx context.Context, filter CommunityFilter) ([]models.CommunityMessage, int64, error)
	ListReplies(ctx context.Context, parentID uint) ([]models.CommunityMessage, error)
	UpdateContent(ctx context.Context, id uint, content string, editedAt time.Time) error
	SetPinned(ctx context.Context, id uint, pinned bool) error
	DeleteThread(ctx context.Context, id uint) error
	ToggleReaction(ctx context.Context, messageID, userID uint, reactionType string) (bool, error)
	ReactionCounts(ctx context.Context, messageIDs []uint) ([]ReactionCount, error)
	ReactionsByUser(ctx context.Context, messageIDs []uint, userID uint) ([]models.MessageReaction, error)
	ReplyCounts(ctx context.Context, parentIDs []uint) (map[uint]int64, error)
	MarkRead(ctx context.Context, messageIDs []uint, userID uint, at time.Time) error
	ReadMessageIDs(ctx context.Context, messageIDs []uint, userID uint) (map[uint]bool, error)
	UnreadCount(ctx context.Context, userID uint) (int64, error)
}

type communityRepository struct {
	db *gorm.DB
}

// NewCommunityRepository constructs a GORM-backed repository.
func NewCommunityRepository(db *gorm.DB) CommunityRepository {
	return &communityRepository{db: db}
}

func (r *communityRepository) Create(ctx context.Context, message *models.CommunityMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *communityRepository) FindByID(ctx context.Context, id uint) (models.CommunityMessage, error) {
	var message models.CommunityMessage
	if err := r.db.WithContext(ctx).First(&message, id).Error; err != nil {
		return models.CommunityMessage{}, err
	}
	return message, nil
}

func (r *communityRepository) ListTopLevel(ctx context.Context, filter CommunityFilter) ([]models.CommunityMessage, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.CommunityMessage{}).Where("parent_id IS NULL")
	if filter.Topic != "" {
		query = query.Where("topic = ?", filter.Topic)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var messages []models.CommunityMessage
	if err := paginate(query, filter.Page, filter.PageSize).
		Order("is_pinned DESC, created_at DESC, id DESC").
		Find(&messages).Error; err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

// ListReplies returns replies oldest first. Ties on created_at fall back to insertion id.
func (r *communityRepository) ListReplies(ctx context.Context, parentID uint) ([]models.CommunityMessage, error) {
	var replies []models.CommunityMessage
	if err := r.db.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Order("created_at ASC, id ASC").
		Find(&replies).Error; err != nil {
		return nil, err
	}
	return replies, nil
}

func (r *communityRepository) UpdateContent(ctx context.Context, id uint, content string, editedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.CommunityMessage{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"content": content, "edited_at": editedAt})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *communityRepository) SetPinned(ctx context.Context, id uint, pinned bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.CommunityMessage{}).
		Where("id = ?", id).
		UpdateColumn("is_pinned", pinned)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteThread removes a message, its replies, and every reaction and read marker on them.
func (r *communityRepository) DeleteThread(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := []uint{id}
		var replyIDs []uint
		if err := tx.Model(&models.CommunityMessage{}).Where("parent_id = ?", id).Pluck("id", &replyIDs).Error; err != nil {
			return err
		}
		ids = append(ids, replyIDs...)

		if err := tx.Where("message_id IN ?", ids).Delete(&models.MessageReaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("message_id IN ?", ids).Delete(&models.MessageReadStatus{}).Error; err != nil {
			return err
		}
		if len(replyIDs) > 0 {
			if err := tx.Where("id IN ?", replyIDs).Delete(&models.CommunityMessage{}).Error; err != nil {
				return err
			}
		}

		result := tx.Delete(&models.CommunityMessage{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// ToggleReaction removes the reaction when present and inserts it otherwise. It reports
// whether the reaction is active afterwards. A concurrent insert of the same reaction is
// absorbed by the unique index.
func (r *communityRepository) ToggleReaction(ctx context.Context, messageID, userID uint, reactionType string) (bool, error) {
	active := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		removed := tx.
			Where("message_id = ? AND user_id = ? AND reaction_type = ?", messageID, userID, reactionType).
			Delete(&models.MessageReaction{})
		if removed.Error != nil {
			return removed.Error
		}
		if removed.RowsAffected > 0 {
			return nil
		}

		reaction := models.MessageReaction{MessageID: messageID, UserID: userID, ReactionType: reactionType}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&reaction).Error; err != nil {
			return err
		}
		active = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return active, nil
}

func (r *communityRepository) ReactionCounts(ctx context.Context, messageIDs []uint) ([]ReactionCount, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	var counts []ReactionCount
	err := r.db.WithContext(ctx).
		Model(&models.MessageReaction{}).
		Select("message_id, reaction_type, COUNT(*) AS count").
		Where("message_id IN ?", messageIDs).
		Group("message_id, reaction_type").
		Scan(&counts).Error
	return counts, err
}

func (r *communityRepository) ReactionsByUser(ctx context.Context, messageIDs []uint, userID uint) ([]models.MessageReaction, error) {
	if len(messageIDs) == 0 || userID == 0 {
		return nil, nil
	}
	var reactions []models.MessageReaction
	err := r.db.WithContext(ctx).
		Where("message_id IN ? AND user_id = ?", messageIDs, userID).
		Find(&reactions).Error
	return reactions, err
}

func (r *communityRepository) ReplyCounts(ctx context.Context, parentIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(parentIDs))
	if len(parentIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		ParentID uint
		Count    int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.CommunityMessage{}).
		Select("parent_id, COUNT(*) AS count").
		Where("parent_id IN ?", parentIDs).
		Group("parent_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.ParentID] = row.Count
	}
	return counts, nil
}

func (r *communityRepository) MarkRead(ctx context.Context, messageIDs []uint, userID uint, at time.Time) error {
	if len(messageIDs) == 0 {
		return nil
	}
	statuses := make([]models.MessageReadStatus, 0, len(messageIDs))
	for _, id := range messageIDs {
		statuses = append(statuses, models.MessageReadStatus{MessageID: id, UserID: userID, ReadAt: at})
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "message_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&statuses).Error
}

func (r *communityRepository) ReadMessageIDs(ctx context.Context, messageIDs []uint, userID uint) (map[uint]bool, error) {
	read := make(map[uint]bool, len(messageIDs))
	if len(messageIDs) == 0 || userID == 0 {
		return read, nil
	}
	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&models.MessageReadStatus{}).
		Where("message_id IN ? AND user_id = ?", messageIDs, userID).
		Pluck("message_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		read[id] = true
	}
	return read, nil
}

// UnreadCount counts top-level messages by other users that the user has not marked read.
func (r *communityRepository) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CommunityMessage{}).
		Where("parent_id IS NULL AND author_id <> ?", userID).
		Where("NOT EXISTS (SELECT 1 FROM message_read_statuses rs WHERE rs.message_id = community_messages.id AND rs.user_id = ?)", userID).
		Count(&count).Error
	return count, err
}
