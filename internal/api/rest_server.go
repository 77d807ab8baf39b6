package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/twin-viewer/internal/config"
	"github.com/annel0/twin-viewer/internal/highlight"
	"github.com/annel0/twin-viewer/internal/middleware"
	"github.com/annel0/twin-viewer/internal/region"
	"github.com/annel0/twin-viewer/internal/scene"
)

// RestServer представляет REST API сервер двойника
type RestServer struct {
	router    *gin.Engine
	registry  *highlight.Registry
	evaluator *region.Evaluator
	scene     *scene.Scene
	port      string
	metrics   *ServerMetrics
	srv       *http.Server
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port      string               // порт для запуска сервера
	Registry  *highlight.Registry  // реестр подсветки
	Evaluator *region.Evaluator    // вычислитель регионов
	Scene     *scene.Scene         // сцена двойника
}

// NewRestServer создает новый REST API сервер
func NewRestServer(cfg Config) *RestServer {
	if cfg.Port == "" {
		cfg.Port = ":8088"
	}

	// Устанавливаем режим релиза для gin
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	loggerMw := middleware.NewRequestLogger()
	router.Use(loggerMw.Handler())

	router.Use(otelgin.Middleware("twin_api"))

	promMw := middleware.NewPrometheusMiddleware("twin_api")
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	server := &RestServer{
		router:    router,
		registry:  cfg.Registry,
		evaluator: cfg.Evaluator,
		scene:     cfg.Scene,
		port:      cfg.Port,
		metrics:   NewServerMetrics(),
	}

	// Настраиваем маршруты
	server.setupRoutes()

	return server
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	// Middleware для CORS
	rs.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Группа API
	api := rs.router.Group("/api")
	{
		api.GET("/status", rs.handleStatus)

		// Элементы сцены и их подсветка
		api.GET("/elements", rs.handleGetElements)
		api.POST("/elements/:id/enable", rs.handleEnableElement)
		api.POST("/elements/:id/disable", rs.handleDisableElement)
		api.POST("/elements/:id/toggle", rs.handleToggleElement)

		// Регионы
		api.GET("/regions", rs.handleGetRegions)
		api.POST("/regions", rs.handleCreateRegion)
		api.POST("/regions/:id/members", rs.handleAddMember)
		api.PUT("/regions/:id/active", rs.handleSetActive)

		// Запрос подсветки через регион
		api.POST("/highlight", rs.handleHighlightRequest)
	}

	// Health check
	rs.router.GET("/health", rs.handleHealth)
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// RegionRequest представляет запрос на регистрацию региона
type RegionRequest struct {
	ID      string              `json:"id" binding:"required"`
	Color   string              `json:"color"`
	Volume  config.VolumeConfig `json:"volume"`
	Members []string            `json:"members"`
}

// MemberRequest представляет запрос на добавление объекта в регион
type MemberRequest struct {
	ElementID string `json:"element_id" binding:"required"`
}

// ActiveRequest представляет запрос смены состояния региона
type ActiveRequest struct {
	Active bool `json:"active"`
}

// HighlightRequest представляет запрос подсветки через регион
type HighlightRequest struct {
	RegionID        string `json:"region_id" binding:"required"`
	ElementID       string `json:"element_id" binding:"required"`
	WantHighlighted bool   `json:"want_highlighted"`
	Color           string `json:"color"` // hex, опционально
}

// handleStatus возвращает статистику сервера
func (rs *RestServer) handleStatus(c *gin.Context) {
	stats := make(map[string]interface{})

	stats["highlight"] = map[string]interface{}{
		"hulls":       rs.registry.HullCount(),
		"registered":  len(rs.registry.RegisteredIDs()),
		"highlighted": len(rs.registry.HighlightedIDs()),
	}

	if rs.evaluator != nil {
		stats["regions"] = rs.evaluator.GetStats()
	}

	if rs.scene != nil {
		stats["scene"] = map[string]interface{}{
			"objects": rs.scene.Len(),
		}
	}

	// Метрики сервера
	memoryMB, _ := rs.metrics.GetMemoryUsage()
	cpuPercent, _ := rs.metrics.GetCPUUsage()

	stats["server"] = map[string]interface{}{
		"uptime":      rs.metrics.GetUptime(),
		"memory_mb":   fmt.Sprintf("%.2f", memoryMB),
		"cpu_percent": fmt.Sprintf("%.2f", cpuPercent),
		"server_time": time.Now().Unix(),
	}

	stats["memory_details"] = rs.metrics.GetDetailedMemoryStats()

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика получена",
		Data:    stats,
	})
}

// handleGetElements возвращает зарегистрированные элементы и их подсветку
func (rs *RestServer) handleGetElements(c *gin.Context) {
	ids := rs.registry.RegisteredIDs()
	highlighted := rs.registry.HighlightedIDs()

	elements := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		el := map[string]interface{}{
			"id":          id,
			"highlighted": false,
		}
		if color, ok := highlighted[id]; ok {
			el["highlighted"] = true
			el["color"] = color.Hex()
		}
		elements = append(elements, el)
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Список элементов",
		Data: map[string]interface{}{
			"elements": elements,
			"total":    len(elements),
		},
	})
}

// handleEnableElement включает подсветку элемента по ID
func (rs *RestServer) handleEnableElement(c *gin.Context) {
	id := c.Param("id")

	if colorHex := c.Query("color"); colorHex != "" {
		color, err := highlight.ParseColor(colorHex)
		if err != nil {
			c.JSON(http.StatusBadRequest, GenericResponse{
				Success: false,
				Message: "Неверный формат цвета: " + err.Error(),
			})
			return
		}
		rs.registry.EnableID(id, color)
	} else {
		rs.registry.EnableID(id)
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Подсветка включена",
		Data: map[string]interface{}{
			"id":          id,
			"highlighted": rs.registry.IsHighlightedID(id),
		},
	})
}

// handleDisableElement выключает подсветку элемента по ID
func (rs *RestServer) handleDisableElement(c *gin.Context) {
	id := c.Param("id")
	rs.registry.DisableID(id)

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Подсветка выключена",
		Data: map[string]interface{}{
			"id":          id,
			"highlighted": rs.registry.IsHighlightedID(id),
		},
	})
}

// handleToggleElement переключает подсветку элемента по ID
func (rs *RestServer) handleToggleElement(c *gin.Context) {
	id := c.Param("id")
	rs.registry.ToggleID(id)

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Подсветка переключена",
		Data: map[string]interface{}{
			"id":          id,
			"highlighted": rs.registry.IsHighlightedID(id),
		},
	})
}

// handleGetRegions возвращает список регионов
func (rs *RestServer) handleGetRegions(c *gin.Context) {
	regions := rs.evaluator.Regions()

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Список регионов",
		Data: map[string]interface{}{
			"regions": regions,
			"total":   len(regions),
		},
	})
}

// handleCreateRegion регистрирует новый регион
func (rs *RestServer) handleCreateRegion(c *gin.Context) {
	var req RegionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Неверный формат запроса: " + err.Error(),
		})
		return
	}

	volume, err := req.Volume.Build()
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Неверный объём региона: " + err.Error(),
		})
		return
	}

	var colors []highlight.Color
	if req.Color != "" {
		color, err := highlight.ParseColor(req.Color)
		if err != nil {
			c.JSON(http.StatusBadRequest, GenericResponse{
				Success: false,
				Message: "Неверный формат цвета: " + err.Error(),
			})
			return
		}
		colors = append(colors, color)
	}

	if err := rs.evaluator.RegisterRegion(req.ID, volume, colors...); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Ошибка регистрации региона: " + err.Error(),
		})
		return
	}

	for _, member := range req.Members {
		rs.evaluator.AddMember(req.ID, member)
	}

	c.JSON(http.StatusCreated, GenericResponse{
		Success: true,
		Message: "Регион зарегистрирован",
		Data: map[string]interface{}{
			"id":      req.ID,
			"members": len(req.Members),
		},
	})
}

// handleAddMember добавляет объект в регион
func (rs *RestServer) handleAddMember(c *gin.Context) {
	regionID := c.Param("id")

	var req MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Неверный формат запроса: " + err.Error(),
		})
		return
	}

	rs.evaluator.AddMember(regionID, req.ElementID)

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Объект добавлен в регион",
		Data: map[string]interface{}{
			"region_id":  regionID,
			"element_id": req.ElementID,
		},
	})
}

// handleSetActive меняет состояние региона
func (rs *RestServer) handleSetActive(c *gin.Context) {
	regionID := c.Param("id")

	var req ActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Неверный формат запроса: " + err.Error(),
		})
		return
	}

	rs.evaluator.SetActive(regionID, req.Active)

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Состояние региона обновлено",
		Data: map[string]interface{}{
			"region_id": regionID,
			"active":    rs.evaluator.IsActive(regionID),
		},
	})
}

// handleHighlightRequest обрабатывает запрос подсветки через регион
func (rs *RestServer) handleHighlightRequest(c *gin.Context) {
	var req HighlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Неверный формат запроса: " + err.Error(),
		})
		return
	}

	var colors []highlight.Color
	if req.Color != "" {
		color, err := highlight.ParseColor(req.Color)
		if err != nil {
			c.JSON(http.StatusBadRequest, GenericResponse{
				Success: false,
				Message: "Неверный формат цвета: " + err.Error(),
			})
			return
		}
		colors = append(colors, color)
	}

	rs.evaluator.RequestHighlight(req.RegionID, req.ElementID, req.WantHighlighted, colors...)

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Запрос подсветки обработан",
		Data: map[string]interface{}{
			"region_id":   req.RegionID,
			"element_id":  req.ElementID,
			"highlighted": rs.registry.IsHighlightedID(req.ElementID),
		},
	})
}

// handleHealth проверка состояния сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// Start запускает REST сервер
func (rs *RestServer) Start() error {
	rs.srv = &http.Server{
		Addr:    rs.port,
		Handler: rs.router,
	}

	err := rs.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop останавливает REST сервер
func (rs *RestServer) Stop() error {
	if rs.srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return rs.srv.Shutdown(ctx)
}
