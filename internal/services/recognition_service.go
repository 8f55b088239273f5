// internal/services/recognition_service.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cardmeet/cardmeet-backend/internal/apperrors"
	"github.com/cardmeet/cardmeet-backend/internal/config"
)

// ScanResult pairs recognizer candidates with the stored photo so the
// client can attach the photo to whichever inventory item it creates.
type ScanResult struct {
	PhotoURL   string          `json:"photo_url"`
	PhotoKey   string          `json:"photo_key"`
	Candidates []ScanCandidate `json:"candidates"`
}

type ScanCandidate struct {
	CardID     string  `json:"card_id"`
	Name       string  `json:"name"`
	SetName    string  `json:"set_name"`
	Confidence float64 `json:"confidence"`
}

// RecognitionService sends a card photo to the external recognizer and
// returns ranked candidate matches.
type RecognitionService struct {
	config  *config.Config
	storage *StorageService
	cards   *CardAPIService
	client  *http.Client
}

func NewRecognitionService(cfg *config.Config, storage *StorageService, cards *CardAPIService) *RecognitionService {
	return &RecognitionService{
		config:  cfg,
		storage: storage,
		cards:   cards,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// ScanCard stores the uploaded photo and asks the recognizer for
// matches. Storage failure aborts the scan; recognizer failure still
// returns the stored photo with no candidates so the user can pick a
// card manually.
func (s *RecognitionService) ScanCard(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*ScanResult, error) {
	if err := s.storage.ValidateImage(file); err != nil {
		return nil, err
	}

	upload, err := s.storage.UploadFile(file, header, s.storage.GetDefaultUploadOptions("card_scans"))
	if err != nil {
		return nil, err
	}

	result := &ScanResult{
		PhotoURL: upload.URL,
		PhotoKey: upload.Key,
	}

	candidates, err := s.recognize(ctx, file, header)
	if err != nil {
		logrus.WithError(err).Warn("Card recognition failed, returning photo without candidates")
		return result, nil
	}

	result.Candidates = candidates
	return result, nil
}

func (s *RecognitionService) recognize(ctx context.Context, file multipart.File, header *multipart.FileHeader) ([]ScanCandidate, error) {
	if s.config.CardAPI.UseMocks || s.config.CardAPI.RecognizerURL == "" {
		return []ScanCandidate{
			{CardID: "base1-4", Name: "Charizard", SetName: "Base Set", Confidence: 0.97},
			{CardID: "base1-11", Name: "Nidoking", SetName: "Base Set", Confidence: 0.41},
		}, nil
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, apperrors.Internal("failed to rewind file", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", header.Filename)
	if err != nil {
		return nil, apperrors.Internal("failed to build recognizer request", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, apperrors.Internal("failed to copy image", err)
	}
	if err := writer.Close(); err != nil {
		return nil, apperrors.Internal("failed to finalize recognizer request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.CardAPI.RecognizerURL+"/v1/recognize", &body)
	if err != nil {
		return nil, apperrors.Internal("failed to build recognizer request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if s.config.CardAPI.RecognizerAPIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.CardAPI.RecognizerAPIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, apperrors.External("recognizer unavailable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.External(fmt.Sprintf("recognizer returned status %d", resp.StatusCode), nil)
	}

	var payload struct {
		Matches []struct {
			CardID     string  `json:"card_id"`
			Name       string  `json:"name"`
			SetName    string  `json:"set_name"`
			Confidence float64 `json:"confidence"`
		} `json:"matches"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, apperrors.External("recognizer returned an invalid response", err)
	}

	candidates := make([]ScanCandidate, 0, len(payload.Matches))
	for _, m := range payload.Matches {
		candidates = append(candidates, ScanCandidate{
			CardID:     m.CardID,
			Name:       m.Name,
			SetName:    m.SetName,
			Confidence: m.Confidence,
		})
	}
	return candidates, nil
}
