package controller

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ingestion-gateway/internal/middleware"
	"ingestion-gateway/internal/model"
	"ingestion-gateway/internal/service"
	"ingestion-gateway/internal/storage"
	"ingestion-gateway/internal/utils"
	"ingestion-gateway/pkg/response"
)

type IngestionController struct {
	transferService service.TransferService
	uploads         *storage.UploadStore
}

func NewIngestionController(transferService service.TransferService, uploads *storage.UploadStore) *IngestionController {
	return &IngestionController{
		transferService: transferService,
		uploads:         uploads,
	}
}

// RegisterRoutes mounts the ingestion endpoints on rg
func (ic *IngestionController) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/tables", ic.GetTables)
	rg.GET("/columns", ic.GetColumns)
	rg.POST("/columns/multiple", ic.GetColumnsForTables)
	rg.POST("/start", ic.StartIngestion)
	rg.POST("/upload", ic.UploadFile)
	rg.POST("/preview", ic.PreviewData)
	rg.GET("/stats", ic.GetStats)
}

// GetTables godoc
// @Summary List store tables
// @Tags ingestion
// @Produce json
// @Param Authorization header string false "Bearer credential forwarded to the store"
// @Success 200 {object} response.StandardResponse{data=[]string}
// @Failure 503 {object} response.StandardResponse
// @Router /ingestion/tables [get]
func (ic *IngestionController) GetTables(c *gin.Context) {
	correlationID := middleware.GetCorrelationID(c)

	tables, err := ic.transferService.ListTables(c.Request.Context(), bearerCredential(c))
	if err != nil {
		ic.fail(c, "Fetching tables", err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessResponse(tables, correlationID))
}

// GetColumns godoc
// @Summary List columns of a store table or a flat file
// @Tags ingestion
// @Produce json
// @Param source query string true "clickhouse or flatfile"
// @Param tableName query string false "Table name, for source=clickhouse"
// @Param filePath query string false "File path, for source=flatfile"
// @Success 200 {object} response.StandardResponse{data=[]string}
// @Failure 400 {object} response.StandardResponse
// @Router /ingestion/columns [get]
func (ic *IngestionController) GetColumns(c *gin.Context) {
	correlationID := middleware.GetCorrelationID(c)
	ctx := c.Request.Context()

	var (
		columns []string
		err     error
	)
	switch model.Source(c.Query("source")) {
	case model.SourceClickHouse:
		columns, err = ic.transferService.ListColumns(ctx, c.Query("tableName"), bearerCredential(c))
	case model.SourceFlatFile:
		columns, err = ic.transferService.FileColumns(ctx, c.Query("filePath"))
	default:
		c.JSON(http.StatusBadRequest, response.InvalidRequestResponse(
			fmt.Sprintf("source must be %s or %s", model.SourceClickHouse, model.SourceFlatFile),
			correlationID,
		))
		return
	}
	if err != nil {
		ic.fail(c, "Fetching columns", err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessResponse(columns, correlationID))
}

// GetColumnsForTables godoc
// @Summary List columns for several store tables
// @Tags ingestion
// @Accept json
// @Produce json
// @Param request body []string true "Table names"
// @Success 200 {object} response.StandardResponse{data=map[string][]string}
// @Failure 400 {object} response.StandardResponse
// @Router /ingestion/columns/multiple [post]
func (ic *IngestionController) GetColumnsForTables(c *gin.Context) {
	correlationID := middleware.GetCorrelationID(c)

	var tables []string
	if err := c.ShouldBindJSON(&tables); err != nil {
		c.JSON(http.StatusBadRequest, response.InvalidRequestResponse(err.Error(), correlationID))
		return
	}

	byTable, err := ic.transferService.ListColumnsForTables(c.Request.Context(), tables, bearerCredential(c))
	if err != nil {
		ic.fail(c, "Fetching columns", err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessResponse(byTable, correlationID))
}

// StartIngestion godoc
// @Summary Run a full transfer
// @Description source=clickhouse exports a query result to a file; source=flatfile loads a file into a new table
// @Tags ingestion
// @Accept json
// @Produce json
// @Param request body model.TransferRequest true "Transfer request"
// @Success 200 {object} response.StandardResponse{data=model.TransferResult}
// @Failure 400 {object} response.StandardResponse
// @Failure 500 {object} response.StandardResponse
// @Router /ingestion/start [post]
func (ic *IngestionController) StartIngestion(c *gin.Context) {
	correlationID := middleware.GetCorrelationID(c)

	req, ok := ic.bindTransferRequest(c)
	if !ok {
		return
	}

	result, err := ic.transferService.Transfer(c.Request.Context(), req)
	if err != nil {
		ic.fail(c, "Ingestion", err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessDataMessageResponse(
		result,
		fmt.Sprintf("Ingestion completed. Records processed: %d", result.RecordCount),
		correlationID,
	))
}

// PreviewData godoc
// @Summary Preview up to the configured number of rows
// @Tags ingestion
// @Accept json
// @Produce json
// @Param request body model.TransferRequest true "Transfer request"
// @Success 200 {object} response.StandardResponse{data=model.PreviewResult}
// @Failure 400 {object} response.StandardResponse
// @Router /ingestion/preview [post]
func (ic *IngestionController) PreviewData(c *gin.Context) {
	correlationID := middleware.GetCorrelationID(c)

	req, ok := ic.bindTransferRequest(c)
	if !ok {
		return
	}

	preview, err := ic.transferService.Preview(c.Request.Context(), req)
	if err != nil {
		ic.fail(c, "Preview", err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessResponse(preview, correlationID))
}

// UploadFile godoc
// @Summary Upload a flat file
// @Tags ingestion
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV file"
// @Success 200 {object} response.StandardResponse{data=string}
// @Failure 400 {object} response.StandardResponse
// @Router /ingestion/upload [post]
func (ic *IngestionController) UploadFile(c *gin.Context) {
	correlationID := middleware.GetCorrelationID(c)

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.InvalidRequestResponse("No file uploaded", correlationID))
		return
	}
	if header.Size == 0 {
		c.JSON(http.StatusBadRequest, response.InvalidRequestResponse("Uploaded file is empty", correlationID))
		return
	}

	f, err := header.Open()
	if err != nil {
		ic.fail(c, "File upload", utils.NewIOError(err, "open upload"))
		return
	}
	defer f.Close()

	path, err := ic.uploads.Save(header.Filename, f)
	if err != nil {
		ic.fail(c, "File upload", err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessResponse(path, correlationID))
}

// GetStats godoc
// @Summary Transfer totals since startup
// @Tags ingestion
// @Produce json
// @Success 200 {object} response.StandardResponse{data=service.TransferStats}
// @Router /ingestion/stats [get]
func (ic *IngestionController) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, response.SuccessResponse(ic.transferService.Stats(), middleware.GetCorrelationID(c)))
}

func (ic *IngestionController) bindTransferRequest(c *gin.Context) (*model.TransferRequest, bool) {
	var req model.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.InvalidRequestResponse(
			"Invalid request body: "+err.Error(),
			middleware.GetCorrelationID(c),
		))
		return nil, false
	}
	if req.Credential == "" {
		req.Credential = bearerCredential(c)
	}
	return &req, true
}

// fail writes "<operation> failed: <cause>" with the status of the error kind
func (ic *IngestionController) fail(c *gin.Context, operation string, err error) {
	c.JSON(utils.GetErrorStatus(err), response.OperationFailedResponse(operation, err, middleware.GetCorrelationID(c)))
}

// bearerCredential reads a store credential from the Authorization header
func bearerCredential(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
