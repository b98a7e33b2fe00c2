package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"catalogadmin/audit"
	"catalogadmin/catalog"
	"catalogadmin/editcache"
	"catalogadmin/images"
	"catalogadmin/lookup"
	"catalogadmin/models"

	"github.com/360EntSecGroup-Skylar/excelize/v2"
	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var (
	s1 = `
	{
		"border": [
			{
			"type": "left",
			"color": "#000000",
			"style": 1
			},
			{
			"type": "top",
			"color": "#000000",
			"style": 1
			},
			{
			"type": "right",
			"color": "#000000",
			"style": 1
			},
			{
			"type": "bottom",
			"color": "#000000",
			"style": 1
			}
		],
		"fill": {
			"type": "pattern",
			"pattern": 1,
			"color": ["#96b753"]
		},
		"font": {
			"bold": true
		},
		"alignment": {
			"shrink_to_fit": true,
			"horizontal": "center"
		}
	}
	`
	s2 = `
	{
		"border": [
			{
			"type": "left",
			"color": "#000000",
			"style": 1
			},
			{
			"type": "top",
			"color": "#000000",
			"style": 1
			},
			{
			"type": "right",
			"color": "#000000",
			"style": 1
			},
			{
			"type": "bottom",
			"color": "#000000",
			"style": 1
			}
		],
		"fill": {
			"type": "pattern",
			"pattern": 1
		},
		"alignment": {
			"shrink_to_fit": true
		}
	}
	`
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var genericOK = map[string]string{"message": "ok"}

type GenericResponse = models.GenericResponse

type API struct {
	Categories *EntityHandler[models.Category]
	Brands     *EntityHandler[models.Brand]
	Products   *EntityHandler[models.Product]

	Names   *lookup.Names
	Images  *images.Uploader
	Feed    *editcache.Feed
	Journal *audit.Journal
	Log     logrus.FieldLogger
}

func NewAPI() *API {
	return &API{Log: logrus.StandardLogger()}
}

func sendError(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{
		"message": msg,
	})
}

// sendFailure answers with the status matching err.
func sendFailure(c *gin.Context, err error) {
	code := statusFor(err)

	var verr *catalog.ValidationError
	if errors.As(err, &verr) {
		c.JSON(code, models.ValidationResponse{Message: err.Error(), Detail: verr.Fields})
		return
	}

	sendError(c, code, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, editcache.ErrNoDraft), catalog.IsNotFound(err):
		return http.StatusNotFound
	case catalog.IsValidation(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, editcache.ErrNotClean),
		errors.Is(err, editcache.ErrNotEditing),
		errors.Is(err, editcache.ErrNotAdding),
		errors.Is(err, editcache.ErrIdentityMismatch),
		errors.Is(err, editcache.ErrIdentifierAssigned):
		return http.StatusConflict
	case errors.Is(err, catalog.ErrEmptyID):
		return http.StatusBadRequest
	case catalog.IsNetwork(err), catalog.IsServer(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// sendCached writes body as JSON with an ETag and answers 304 when the
// client already has it.
func sendCached(c *gin.Context, body interface{}) {
	data, err := json.Marshal(body)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	etag := fmt.Sprintf(`"%016x"`, xxhash.Sum64(data))
	c.Header("ETag", etag)
	c.Header("Cache-Control", "no-cache")

	if c.GetHeader("If-None-Match") == etag {
		c.AbortWithStatus(http.StatusNotModified)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func handleExcel(c *gin.Context, name string, header []string, rows [][]interface{}) {
	if len(rows) == 0 {
		sendError(c, http.StatusNotFound, name+"-not-found")
		return
	}

	f := excelize.NewFile()

	sheet := "List " + title(name)
	f.NewSheet(sheet)
	// delete default sheet
	f.DeleteSheet("Sheet1")

	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if err := f.SetColWidth(sheet, "A", lastCol, 30); err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	headerStyle, err := f.NewStyle(s1)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	dataStyle, err := f.NewStyle(s2)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	streamWriter, err := f.NewStreamWriter(sheet)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = excelize.Cell{StyleID: headerStyle, Value: h}
	}
	if err := streamWriter.SetRow("A1", headerRow); err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	for n, values := range rows {
		row := make([]interface{}, len(values))
		for i, v := range values {
			row[i] = excelize.Cell{StyleID: dataStyle, Value: v}
		}

		cell, _ := excelize.CoordinatesToCellName(1, n+2)
		if err := streamWriter.SetRow(cell, row); err != nil {
			sendError(c, http.StatusInternalServerError, err.Error())
			return
		}
	}

	if err := streamWriter.Flush(); err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	fileName := reportFileName(name, time.Now().UTC())

	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", "attachment;filename=\""+fileName+"\"")

	if _, err := f.WriteTo(c.Writer); err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}
}

func reportFileName(name string, t time.Time) string {
	return fmt.Sprintf("report_%s_%s.xlsx", name, t.Format("20060102_150405"))
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// RefreshAll loads every list, references first so product rows get names.
func (api *API) RefreshAll(ctx context.Context) error {
	var errs []error
	if api.Categories != nil {
		errs = append(errs, api.Categories.Controller().Refresh(ctx))
	}
	if api.Brands != nil {
		errs = append(errs, api.Brands.Controller().Refresh(ctx))
	}
	if api.Products != nil {
		errs = append(errs, api.Products.Controller().Refresh(ctx))
	}
	return errors.Join(errs...)
}

func (api *API) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
