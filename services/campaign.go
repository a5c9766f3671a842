package services

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"watch-rewards-system/models"
	"watch-rewards-system/store"
)

// CampaignService owns campaigns and the watch flow that advances them.
type CampaignService struct {
	store            store.Store
	ledger           *CoinLedger
	hub              *EventHub
	coinsPerInterval int64
}

func NewCampaignService(s store.Store, ledger *CoinLedger, hub *EventHub, coinsPerInterval int64) *CampaignService {
	return &CampaignService{store: s, ledger: ledger, hub: hub, coinsPerInterval: coinsPerInterval}
}

type CreateCampaignInput struct {
	Title          string `json:"title"`
	VideoURL       string `json:"video_url"`
	VideoLengthSec int    `json:"video_length_sec"`
	TotalIntervals int64  `json:"total_intervals"`
}

func (in CreateCampaignInput) validate() error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return fmt.Errorf("%w: title is required", models.ErrInvalidInput)
	case in.TotalIntervals <= 0:
		return fmt.Errorf("%w: total_intervals must be positive", models.ErrInvalidInput)
	case in.VideoLengthSec < 0:
		return fmt.Errorf("%w: video_length_sec must not be negative", models.ErrInvalidInput)
	}
	u, err := url.ParseRequestURI(strings.TrimSpace(in.VideoURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: video_url must be an http(s) URL", models.ErrInvalidInput)
	}
	return nil
}

func (s *CampaignService) CreateCampaign(ctx context.Context, ownerID string, in CreateCampaignInput) (*models.Campaign, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.GetUser(ctx, ownerID); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	base := slug.Make(in.Title)
	if base == "" {
		base = "campaign"
	}
	c := &models.Campaign{
		ID:             id,
		UserID:         ownerID,
		Title:          strings.TrimSpace(in.Title),
		Slug:           base + "-" + id[:8],
		VideoURL:       strings.TrimSpace(in.VideoURL),
		VideoLengthSec: in.VideoLengthSec,
		Status:         models.CampaignStatusActive,
		TotalIntervals: in.TotalIntervals,
	}
	if err := s.store.InsertCampaign(ctx, c); err != nil {
		return nil, err
	}
	log.Printf("🎬 [CAMPAIGN] %s created by %s (%d intervals)", c.ID, ownerID, c.TotalIntervals)
	return c, nil
}

type ProgressResult struct {
	Campaign      *models.Campaign `json:"campaign"`
	JustCompleted bool             `json:"just_completed"`
}

// RecordProgress adds intervals to the campaign and completes it once the
// total is reached. Completion is one-way; no coins move here.
func (s *CampaignService) RecordProgress(ctx context.Context, campaignID string, intervals int64) (*ProgressResult, error) {
	if intervals < 0 {
		return nil, fmt.Errorf("%w: intervals must not be negative", models.ErrInvalidInput)
	}
	c, completed, err := s.store.AddCampaignProgress(ctx, campaignID, intervals)
	if err != nil {
		return nil, err
	}
	if completed {
		s.completed(c)
	}
	return &ProgressResult{Campaign: c, JustCompleted: completed}, nil
}

type WatchResult struct {
	WatchLog      *models.WatchLog `json:"watch_log"`
	Campaign      *models.Campaign `json:"campaign"`
	JustCompleted bool             `json:"just_completed"`
	CoinsAwarded  int64            `json:"coins_awarded"`
	Balance       int64            `json:"balance"`
}

// RecordWatchInterval logs a watch event by userID. While the campaign is
// active the intervals count toward it and the watcher earns coins; once it
// is completed only the audit row is written.
func (s *CampaignService) RecordWatchInterval(ctx context.Context, userID, campaignID string, intervals int64) (*WatchResult, error) {
	if intervals < 1 {
		return nil, fmt.Errorf("%w: intervals must be at least 1", models.ErrInvalidInput)
	}

	var (
		res   WatchResult
		entry *ledgerEntry
	)
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		watcher, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		campaign, err := tx.GetCampaign(ctx, campaignID)
		if err != nil {
			return err
		}
		if campaign.UserID == userID {
			return fmt.Errorf("%w: cannot watch your own campaign", models.ErrForbidden)
		}

		active := !campaign.IsCompleted()
		wl := &models.WatchLog{
			ID:                uuid.NewString(),
			UserID:            userID,
			CampaignID:        campaignID,
			Timestamp:         time.Now().UTC(),
			IntervalsRecorded: intervals,
		}
		if active {
			wl.CoinsAwarded = intervals * s.coinsPerInterval
		}
		if err := tx.InsertWatchLog(ctx, wl); err != nil {
			return err
		}
		res.WatchLog = wl
		res.Balance = watcher.Coins

		if !active {
			res.Campaign = campaign
			return nil
		}
		res.Campaign, res.JustCompleted, err = tx.AddCampaignProgress(ctx, campaignID, intervals)
		if err != nil {
			return err
		}
		if wl.CoinsAwarded > 0 {
			e, err := s.ledger.apply(ctx, tx, userID, wl.CoinsAwarded, ReasonWatchReward)
			if err != nil {
				return err
			}
			entry = &e
			res.Balance = e.balance
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if entry != nil {
		s.ledger.commit(ctx, *entry)
	}
	if res.JustCompleted {
		s.completed(res.Campaign)
	}
	res.CoinsAwarded = res.WatchLog.CoinsAwarded
	return &res, nil
}

func (s *CampaignService) completed(c *models.Campaign) {
	campaignsCompletedTotal.Inc()
	log.Printf("🏁 [CAMPAIGN] %s completed (%d/%d intervals)", c.ID, c.CurrentIntervalsCompleted, c.TotalIntervals)
	s.hub.Publish(Event{Kind: EventCampaignCompleted, UserID: c.UserID, CampaignID: c.ID})
}

// ActiveCampaigns lists campaigns open for watching, excluding the viewer's own.
func (s *CampaignService) ActiveCampaigns(ctx context.Context, viewerID string) ([]models.CampaignListing, error) {
	return s.store.ListCampaigns(ctx, store.CampaignFilter{
		ExcludeOwnerID: viewerID,
		Status:         models.CampaignStatusActive,
	})
}

// UserCampaigns lists ownerID's campaigns, newest first.
func (s *CampaignService) UserCampaigns(ctx context.Context, ownerID string) ([]models.CampaignListing, error) {
	return s.store.ListCampaigns(ctx, store.CampaignFilter{OwnerID: ownerID})
}

// AllCampaigns is the admin listing, with the owner's email.
func (s *CampaignService) AllCampaigns(ctx context.Context) ([]models.CampaignListing, error) {
	return s.store.ListCampaigns(ctx, store.CampaignFilter{WithOwnerEmail: true})
}
