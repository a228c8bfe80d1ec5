package handler

import (
	"net/http"

	"github.com/dreschagin/node-health-monitor/internal/application/dto"
	"github.com/dreschagin/node-health-monitor/internal/application/usecase"
	"github.com/dreschagin/node-health-monitor/internal/interfaces/http/middleware"
	"github.com/dreschagin/node-health-monitor/pkg/logger"
)

// HealthAPIHandler отдает результаты последнего прохода проверки
type HealthAPIHandler struct {
	checkUC *usecase.CheckClusterUseCase
	logger  *logger.Logger
}

// NewHealthAPIHandler создает новый handler
func NewHealthAPIHandler(checkUC *usecase.CheckClusterUseCase, logger *logger.Logger) *HealthAPIHandler {
	return &HealthAPIHandler{
		checkUC: checkUC,
		logger:  logger,
	}
}

// GetClusterHealth возвращает полный снимок кластера
func (h *HealthAPIHandler) GetClusterHealth(w http.ResponseWriter, r *http.Request) {
	cluster, ok := h.checkUC.LastSnapshot()
	if !ok {
		middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "unknown",
			"message": "no check has completed yet",
		})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dto.FromClusterHealth(cluster))
}

// GetSummary возвращает компактную сводку по кластеру
func (h *HealthAPIHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	cluster, ok := h.checkUC.LastSnapshot()
	if !ok {
		middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "unknown",
			"message": "no check has completed yet",
		})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dto.NewSummaryDTO(cluster))
}

// GetNode возвращает снимок одного узла по имени
func (h *HealthAPIHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		http.Error(w, "Missing node name", http.StatusBadRequest)
		return
	}

	cluster, ok := h.checkUC.LastSnapshot()
	if !ok {
		middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "unknown",
			"message": "no check has completed yet",
		})
		return
	}

	for _, node := range cluster.Nodes {
		if node.Name == name {
			middleware.WriteJSON(w, http.StatusOK, dto.FromNodeHealth(node))
			return
		}
	}

	middleware.WriteJSON(w, http.StatusNotFound, map[string]string{
		"error": "node not found: " + name,
	})
}
