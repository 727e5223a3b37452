package server

import (
	"log"
	"net/http"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/faizansabir7/fileTransfer/internal/netinfo"
)

// handleNetworkInfo handles GET /api/network-info, returning the best-guess base URL
// for this server. Detection failure is not an error: clients may reach the
// server on an address we could not detect, so the loopback fallback is
// returned with a degraded status instead of a 5xx.
func (s *Server) handleNetworkInfo(w http.ResponseWriter, r *http.Request) {
	ip, err := netinfo.LocalIP()
	status := "running"
	if err != nil {
		log.Printf("[server] network detection degraded: %v", err)
		status = "loopback-only"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"local_ip":   ip,
		"server_url": netinfo.BaseURL(ip, s.port),
		"status":     status,
	})
}

// handleQR handles GET /api/qr, returning a PNG QR code of the advertised base URL,
// for pointing other devices at this host.
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	ip, _ := netinfo.LocalIP()
	url := netinfo.BaseURL(ip, s.port)

	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate QR code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}
