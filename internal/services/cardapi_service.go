// internal/services/cardapi_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/cardmeet/cardmeet-backend/internal/apperrors"
	"github.com/cardmeet/cardmeet-backend/internal/cache"
	"github.com/cardmeet/cardmeet-backend/internal/config"
	"github.com/cardmeet/cardmeet-backend/internal/models"
)

// CardSummary is the search-result shape returned to clients. It maps
// one card from the external card-data provider.
type CardSummary struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Series          string   `json:"series"`
	SetName         string   `json:"set_name"`
	CollectorNumber string   `json:"collector_number"`
	Rarity          string   `json:"rarity"`
	Supertype       string   `json:"supertype"`
	Subtypes        []string `json:"subtypes"`
	SmallImageURL   string   `json:"small_image_url"`
	LargeImageURL   string   `json:"large_image_url"`
	TCGPlayerID     string   `json:"tcgplayer_product_id"`
	CardMarketID    string   `json:"cardmarket_id"`
}

type PricePoint struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

type PriceHistory struct {
	CardID    string       `json:"card_id"`
	Condition string       `json:"condition"`
	Currency  string       `json:"currency"`
	Points    []PricePoint `json:"points"`
}

// CardAPIService talks to the external card-data and price providers.
// Responses are cached because both providers rate-limit aggressively.
type CardAPIService struct {
	config *config.Config
	cache  cache.Cache
	client *http.Client
}

func NewCardAPIService(cfg *config.Config, c cache.Cache) *CardAPIService {
	if c == nil {
		c = cache.NewMemory()
	}
	return &CardAPIService{
		config: cfg,
		cache:  c,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *CardAPIService) cacheTTL() time.Duration {
	return time.Duration(s.config.CardAPI.CacheTTLSeconds) * time.Second
}

// SearchCards queries the card-data provider by name.
func (s *CardAPIService) SearchCards(ctx context.Context, name string, page, pageSize int) ([]CardSummary, error) {
	if name == "" {
		return nil, apperrors.Validation("search name is required")
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 50 {
		pageSize = 20
	}

	if s.config.CardAPI.UseMocks {
		return mockCardSearch(name), nil
	}

	cacheKey := fmt.Sprintf("cards:search:%s:%d:%d", name, page, pageSize)
	if cached, hit, err := s.cache.Get(ctx, cacheKey); err == nil && hit {
		var cards []CardSummary
		if err := json.Unmarshal(cached, &cards); err == nil {
			return cards, nil
		}
	}

	query := url.Values{}
	query.Set("q", fmt.Sprintf(`name:"%s*"`, name))
	query.Set("page", strconv.Itoa(page))
	query.Set("pageSize", strconv.Itoa(pageSize))

	endpoint := fmt.Sprintf("%s/cards?%s", s.config.CardAPI.CardDataBaseURL, query.Encode())

	body, err := s.doGet(ctx, endpoint, s.config.CardAPI.CardDataAPIKey)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data []struct {
			ID        string   `json:"id"`
			Name      string   `json:"name"`
			Number    string   `json:"number"`
			Rarity    string   `json:"rarity"`
			Supertype string   `json:"supertype"`
			Subtypes  []string `json:"subtypes"`
			Set       struct {
				Series string `json:"series"`
				Name   string `json:"name"`
			} `json:"set"`
			Images struct {
				Small string `json:"small"`
				Large string `json:"large"`
			} `json:"images"`
			TCGPlayer struct {
				URL string `json:"url"`
			} `json:"tcgplayer"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, apperrors.External("card provider returned an invalid response", err)
	}

	cards := make([]CardSummary, 0, len(payload.Data))
	for _, c := range payload.Data {
		cards = append(cards, CardSummary{
			ID:              c.ID,
			Name:            c.Name,
			Series:          c.Set.Series,
			SetName:         c.Set.Name,
			CollectorNumber: c.Number,
			Rarity:          c.Rarity,
			Supertype:       c.Supertype,
			Subtypes:        c.Subtypes,
			SmallImageURL:   c.Images.Small,
			LargeImageURL:   c.Images.Large,
			TCGPlayerID:     c.TCGPlayer.URL,
		})
	}

	if encoded, err := json.Marshal(cards); err == nil {
		if err := s.cache.Set(ctx, cacheKey, encoded, s.cacheTTL()); err != nil {
			logrus.WithError(err).Warn("Failed to cache card search results")
		}
	}

	return cards, nil
}

// GetCard fetches one card by provider id.
func (s *CardAPIService) GetCard(ctx context.Context, cardID string) (*CardSummary, error) {
	if cardID == "" {
		return nil, apperrors.Validation("card id is required")
	}

	if s.config.CardAPI.UseMocks {
		mock := mockCardSearch(cardID)
		return &mock[0], nil
	}

	cacheKey := "cards:id:" + cardID
	if cached, hit, err := s.cache.Get(ctx, cacheKey); err == nil && hit {
		var card CardSummary
		if err := json.Unmarshal(cached, &card); err == nil {
			return &card, nil
		}
	}

	endpoint := fmt.Sprintf("%s/cards/%s", s.config.CardAPI.CardDataBaseURL, url.PathEscape(cardID))
	body, err := s.doGet(ctx, endpoint, s.config.CardAPI.CardDataAPIKey)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data struct {
			ID        string   `json:"id"`
			Name      string   `json:"name"`
			Number    string   `json:"number"`
			Rarity    string   `json:"rarity"`
			Supertype string   `json:"supertype"`
			Subtypes  []string `json:"subtypes"`
			Set       struct {
				Series string `json:"series"`
				Name   string `json:"name"`
			} `json:"set"`
			Images struct {
				Small string `json:"small"`
				Large string `json:"large"`
			} `json:"images"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, apperrors.External("card provider returned an invalid response", err)
	}
	if payload.Data.ID == "" {
		return nil, apperrors.NotFound("card not found")
	}

	card := &CardSummary{
		ID:              payload.Data.ID,
		Name:            payload.Data.Name,
		Series:          payload.Data.Set.Series,
		SetName:         payload.Data.Set.Name,
		CollectorNumber: payload.Data.Number,
		Rarity:          payload.Data.Rarity,
		Supertype:       payload.Data.Supertype,
		Subtypes:        payload.Data.Subtypes,
		SmallImageURL:   payload.Data.Images.Small,
		LargeImageURL:   payload.Data.Images.Large,
	}

	if encoded, err := json.Marshal(card); err == nil {
		if err := s.cache.Set(ctx, cacheKey, encoded, s.cacheTTL()); err != nil {
			logrus.WithError(err).Warn("Failed to cache card")
		}
	}

	return card, nil
}

// GetPriceHistory fetches recent market prices for a card from the
// price provider.
func (s *CardAPIService) GetPriceHistory(ctx context.Context, cardID, condition string) (*PriceHistory, error) {
	if cardID == "" {
		return nil, apperrors.Validation("card id is required")
	}
	if condition == "" {
		condition = string(models.CardConditionNearMint)
	}

	if s.config.CardAPI.UseMocks {
		return mockPriceHistory(cardID, condition), nil
	}

	cacheKey := fmt.Sprintf("cards:price:%s:%s", cardID, condition)
	if cached, hit, err := s.cache.Get(ctx, cacheKey); err == nil && hit {
		var history PriceHistory
		if err := json.Unmarshal(cached, &history); err == nil {
			return &history, nil
		}
	}

	query := url.Values{}
	query.Set("cardId", cardID)
	query.Set("condition", condition)

	endpoint := fmt.Sprintf("%s/v1/prices?%s", s.config.CardAPI.PriceBaseURL, query.Encode())
	body, err := s.doGet(ctx, endpoint, s.config.CardAPI.PriceAPIKey)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Currency string `json:"currency"`
		Prices   []struct {
			Date  string  `json:"date"`
			Price float64 `json:"price"`
		} `json:"prices"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, apperrors.External("price provider returned an invalid response", err)
	}

	history := &PriceHistory{
		CardID:    cardID,
		Condition: condition,
		Currency:  payload.Currency,
	}
	if history.Currency == "" {
		history.Currency = "USD"
	}
	for _, p := range payload.Prices {
		history.Points = append(history.Points, PricePoint{Date: p.Date, Price: p.Price})
	}

	if encoded, err := json.Marshal(history); err == nil {
		if err := s.cache.Set(ctx, cacheKey, encoded, s.cacheTTL()); err != nil {
			logrus.WithError(err).Warn("Failed to cache price history")
		}
	}

	return history, nil
}

// EnsureCardDefinition converts a provider card into the locally
// persisted definition used by inventory rows.
func (s *CardAPIService) EnsureCardDefinition(ctx context.Context, cardID string) (*models.CardDefinition, error) {
	card, err := s.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}

	return &models.CardDefinition{
		ID:              card.ID,
		Name:            card.Name,
		Series:          card.Series,
		SetName:         card.SetName,
		CollectorNumber: card.CollectorNumber,
		Rarity:          card.Rarity,
		Supertype:       card.Supertype,
		Subtypes:        pq.StringArray(card.Subtypes),
		SmallImageURL:   card.SmallImageURL,
		LargeImageURL:   card.LargeImageURL,
		TCGPlayerID:     card.TCGPlayerID,
		CardMarketID:    card.CardMarketID,
	}, nil
}

const cardAPIMaxAttempts = 3

func (s *CardAPIService) doGet(ctx context.Context, endpoint, apiKey string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= cardAPIMaxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, apperrors.Internal("failed to build provider request", err)
		}
		if apiKey != "" {
			req.Header.Set("X-Api-Key", apiKey)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = err
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()

			switch {
			case readErr != nil:
				lastErr = readErr
			case resp.StatusCode == http.StatusNotFound:
				return nil, apperrors.NotFound("card not found")
			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
				lastErr = fmt.Errorf("provider returned status %d", resp.StatusCode)
			case resp.StatusCode >= 400:
				return nil, apperrors.External(fmt.Sprintf("provider rejected the request with status %d", resp.StatusCode), nil)
			default:
				return body, nil
			}
		}

		if attempt < cardAPIMaxAttempts {
			select {
			case <-ctx.Done():
				return nil, apperrors.External("provider request cancelled", ctx.Err())
			case <-time.After(time.Duration(attempt) * 250 * time.Millisecond):
			}
		}
	}
	return nil, apperrors.External("card provider unavailable", lastErr)
}

func mockCardSearch(name string) []CardSummary {
	return []CardSummary{
		{
			ID:              "base1-4",
			Name:            name,
			Series:          "Base",
			SetName:         "Base Set",
			CollectorNumber: "4",
			Rarity:          "Rare Holo",
			Supertype:       "Pokémon",
			Subtypes:        []string{"Stage 2"},
			SmallImageURL:   "https://images.example.com/base1-4_small.png",
			LargeImageURL:   "https://images.example.com/base1-4_large.png",
		},
	}
}

func mockPriceHistory(cardID, condition string) *PriceHistory {
	now := time.Now()
	history := &PriceHistory{CardID: cardID, Condition: condition, Currency: "USD"}
	for i := 6; i >= 0; i-- {
		history.Points = append(history.Points, PricePoint{
			Date:  now.AddDate(0, 0, -i).Format("2006-01-02"),
			Price: 40 + float64(i),
		})
	}
	return history
}
