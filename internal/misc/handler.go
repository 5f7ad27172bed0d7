package misc

import (
	"encoding/json"
	"net/http"

	"github.com/2beens/fitdash/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type VersionInfo struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

type Handler struct {
	versionInfo VersionInfo
}

func NewHandler(versionInfo VersionInfo) *Handler {
	return &Handler{
		versionInfo: versionInfo,
	}
}

func (handler *Handler) SetupRoutes(mainRouter *mux.Router) {
	mainRouter.HandleFunc("/", handler.handleRoot).Methods("GET", "POST", "OPTIONS").Name("root")
	mainRouter.HandleFunc("/version", handler.handleGetVersionInfo).Methods("GET").Name("version")
}

func (handler *Handler) handleRoot(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, "I'm OK, thanks ;)")
}

func (handler *Handler) handleGetVersionInfo(w http.ResponseWriter, _ *http.Request) {
	versionJson, err := json.Marshal(handler.versionInfo)
	if err != nil {
		log.Errorf("marshal version info: %s", err)
		http.Error(w, "version info error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, versionJson)
}
