package websocket

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"vortexboard/pkg/auth"
	"vortexboard/pkg/logger"
)

// Authenticate memvalidasi token dari query string sebelum upgrade, karena
// browser tidak bisa mengirim header Authorization saat handshake.
func Authenticate(tm *auth.TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		claims, err := tm.Parse(c.Query("token"))
		if err != nil {
			logger.SecurityLogger.Warn("Rejected websocket handshake", zap.String("ip", c.IP()), zap.Error(err))
			return fiber.NewError(fiber.StatusUnauthorized, "Not authorized to access this route")
		}
		c.Locals("wsUserID", claims.UserID)
		return c.Next()
	}
}

// Serve mendaftarkan koneksi ke hub dan membaca sampai klien menutup.
// Handler baru kembali setelah writer client selesai, karena conn dipakai
// ulang oleh fiber setelah handler kembali.
func Serve(hub *Hub) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("wsUserID").(string)
		client := NewClient(userID, conn)
		hub.Register(client)
		defer func() {
			hub.Unregister(client)
			<-client.Closed()
		}()

		logger.SystemLogger.Info("Websocket client connected", zap.String("user_id", userID))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
}
