package handlers

import (
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	"github.com/Farmer96/LuckGen/internal/models"
	"github.com/Farmer96/LuckGen/internal/services"
)

// csvDefaultChances is granted to imported rows that carry no chances column.
const csvDefaultChances = 1

// AdminLogin lets the organizer page verify its password. AdminAuth has
// already checked it by the time this runs.
func (h *HTTPHandler) AdminLogin(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type detailsRequest struct {
	Title           string                 `json:"title"`
	Description     string                 `json:"description"`
	StartTime       models.Time            `json:"startTime"`
	EndTime         models.Time            `json:"endTime"`
	ParticipantType models.ParticipantType `json:"participantType" binding:"required,oneof=PUBLIC PRIVATE"`
	ThemeColor      string                 `json:"themeColor"`
}

func (r detailsRequest) details() services.ConfigDetails {
	return services.ConfigDetails{
		Title:           r.Title,
		Description:     r.Description,
		StartTime:       r.StartTime.Time,
		EndTime:         r.EndTime.Time,
		ParticipantType: r.ParticipantType,
		ThemeColor:      r.ThemeColor,
	}
}

// CreateLottery starts a new, empty lottery.
func (h *HTTPHandler) CreateLottery(c *gin.Context) {
	var req detailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cfg, err := h.service.CreateConfig(c.Request.Context(), req.details())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cfg)
}

// UpdateDetails edits the campaign fields of the current lottery.
func (h *HTTPHandler) UpdateDetails(c *gin.Context) {
	var req detailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cfg, err := h.service.UpdateDetails(c.Request.Context(), req.details())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// ResetLottery deletes the current lottery with all its users and records.
func (h *HTTPHandler) ResetLottery(c *gin.Context) {
	if err := h.service.Reset(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type prizeRequest struct {
	Level       string  `json:"level"`
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Probability float64 `json:"probability" binding:"gte=0,lte=100"`
	TotalCount  int     `json:"totalCount" binding:"gte=0"`
}

// AddPrize handles adding a new prize to the pool.
func (h *HTTPHandler) AddPrize(c *gin.Context) {
	var req prizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	prize, err := h.service.AddPrize(c.Request.Context(), services.PrizeSpec{
		Level:       req.Level,
		Name:        req.Name,
		Description: req.Description,
		Probability: req.Probability,
		TotalCount:  req.TotalCount,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, prize)
}

type textRequest struct {
	Value string `json:"value"`
}

type probabilityRequest struct {
	Probability *float64 `json:"probability" binding:"required"`
}

type countRequest struct {
	TotalCount *int `json:"totalCount" binding:"required"`
}

// updatePrizeText binds a {"value": ...} body and hands it to update.
func (h *HTTPHandler) updatePrizeText(c *gin.Context, update func(c *gin.Context, id, value string) (*models.Prize, error)) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	prize, err := update(c, c.Param("id"), req.Value)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, prize)
}

// UpdatePrizeLevel renames a prize tier.
func (h *HTTPHandler) UpdatePrizeLevel(c *gin.Context) {
	h.updatePrizeText(c, func(c *gin.Context, id, value string) (*models.Prize, error) {
		return h.service.UpdatePrizeLevel(c.Request.Context(), id, value)
	})
}

// UpdatePrizeName renames a prize.
func (h *HTTPHandler) UpdatePrizeName(c *gin.Context) {
	h.updatePrizeText(c, func(c *gin.Context, id, value string) (*models.Prize, error) {
		return h.service.UpdatePrizeName(c.Request.Context(), id, value)
	})
}

// UpdatePrizeDescription changes a prize description.
func (h *HTTPHandler) UpdatePrizeDescription(c *gin.Context) {
	h.updatePrizeText(c, func(c *gin.Context, id, value string) (*models.Prize, error) {
		return h.service.UpdatePrizeDescription(c.Request.Context(), id, value)
	})
}

// UpdatePrizeProbability changes a prize weight.
func (h *HTTPHandler) UpdatePrizeProbability(c *gin.Context) {
	var req probabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	prize, err := h.service.UpdatePrizeProbability(c.Request.Context(), c.Param("id"), *req.Probability)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, prize)
}

// UpdatePrizeCount sets a prize's inventory and restocks it.
func (h *HTTPHandler) UpdatePrizeCount(c *gin.Context) {
	var req countRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	prize, err := h.service.UpdatePrizeCount(c.Request.Context(), c.Param("id"), *req.TotalCount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, prize)
}

// RemovePrize deletes a prize from the pool.
func (h *HTTPHandler) RemovePrize(c *gin.Context) {
	if err := h.service.RemovePrize(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type userRequest struct {
	Phone        string `json:"phone" binding:"required"`
	Name         string `json:"name"`
	TotalChances int    `json:"totalChances" binding:"gte=0"`
}

// UpsertUser adds a participant or updates an existing one.
func (h *HTTPHandler) UpsertUser(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := h.service.UpsertUser(c.Request.Context(), services.UserSpec{
		Phone:        req.Phone,
		Name:         req.Name,
		TotalChances: req.TotalChances,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// RemoveUser deletes a participant.
func (h *HTTPHandler) RemoveUser(c *gin.Context) {
	if err := h.service.RemoveUser(c.Request.Context(), c.Param("phone")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// parseUserCSV reads phone,name[,totalChances] rows. Malformed rows are
// skipped and counted.
func parseUserCSV(r io.Reader) ([]services.UserSpec, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var (
		specs   []services.UserSpec
		skipped int
		seen    = make(map[string]int)
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, err
		}

		if len(record) < 2 || len(record) > 3 {
			logger.Infof("Skipping malformed participant CSV record: %v", record)
			skipped++
			continue
		}
		phone := strings.TrimSpace(strings.TrimPrefix(record[0], "\ufeff"))
		if phone == "" {
			logger.Infof("Skipping participant CSV record without phone: %v", record)
			skipped++
			continue
		}

		chances := csvDefaultChances
		if len(record) == 3 {
			chances, err = strconv.Atoi(strings.TrimSpace(record[2]))
			if err != nil || chances < 0 {
				logger.Infof("Skipping participant CSV record with invalid chances: %v", record)
				skipped++
				continue
			}
		}

		spec := services.UserSpec{Phone: phone, Name: strings.TrimSpace(record[1]), TotalChances: chances}
		// A later row for the same phone wins.
		if i, ok := seen[phone]; ok {
			specs[i] = spec
			continue
		}
		seen[phone] = len(specs)
		specs = append(specs, spec)
	}
	return specs, skipped, nil
}

// UploadUsersCSV handles the CSV upload for participants.
func (h *HTTPHandler) UploadUsersCSV(c *gin.Context) {
	file, _, err := c.Request.FormFile("userCSV")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error retrieving file: " + err.Error()})
		return
	}
	defer file.Close()

	specs, skipped, err := parseUserCSV(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error reading CSV: " + err.Error()})
		return
	}

	imported, err := h.service.UpsertUsers(c.Request.Context(), specs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": imported, "skipped": skipped})
}

// ExportRecordsCSV handles the request to download the draw records as a CSV file.
func (h *HTTPHandler) ExportRecordsCSV(c *gin.Context) {
	cfg, err := h.service.LoadConfig(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if cfg == nil {
		respondError(c, services.ErrNotConfigured)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment;filename=draw_records.csv")

	// Add BOM to ensure UTF-8 compatibility in Excel
	if _, err := c.Writer.Write([]byte("\xef\xbb\xbf")); err != nil {
		logger.Infof("Error writing CSV BOM: %v", err)
		return
	}

	w := csv.NewWriter(c.Writer)
	if err := w.Write([]string{"时间", "手机号", "奖品ID", "奖品名称"}); err != nil {
		logger.Infof("Error writing CSV header: %v", err)
		return
	}

	for _, r := range cfg.DrawRecords {
		prizeID := ""
		if r.PrizeID != nil {
			prizeID = *r.PrizeID
		}
		row := []string{r.Timestamp.Format("2006-01-02 15:04:05"), r.UserPhone, prizeID, r.PrizeName}
		if err := w.Write(row); err != nil {
			logger.Infof("Error writing CSV row: %v", err)
			return
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		logger.Infof("Error flushing CSV writer: %v", err)
	}
}
