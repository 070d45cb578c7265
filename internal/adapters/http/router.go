package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Rehearsal/internal/adapters/signal"
	"github.com/dkeye/Rehearsal/internal/app"
	"github.com/dkeye/Rehearsal/internal/config"
	"github.com/dkeye/Rehearsal/internal/domain"
)

// ClientTokenMiddleware gives every browser a stable connection token
// so reconnects keep the same session id in the logs.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, coord *app.Coordinator, ctl *signal.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("RehearsalSessions", store))
	r.Use(ClientTokenMiddleware())

	// Pages and assets share the origin with the signaling endpoint so
	// browser peers need no CORS setup.
	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/landing.html")
	})
	r.GET("/app", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})
	r.GET("/band", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/band.html")
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	api.GET("/stats", func(c *gin.Context) {
		rooms, members := coord.Directory.Stats()
		c.JSON(http.StatusOK, gin.H{
			"rooms":       rooms,
			"members":     members,
			"connections": coord.Registry.Count(),
		})
	})

	api.GET("/ice", iceHandler(cfg))
	api.GET("/profile", getProfile)
	api.POST("/profile", setProfile)

	api.GET("/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctl.HandleSignal(ctx, c)
	})

	return r
}

// iceHandler hands the browser peer pipeline its STUN/TURN servers in
// the shape RTCPeerConnection expects.
func iceHandler(cfg *config.Config) gin.HandlerFunc {
	servers := make([]webrtc.ICEServer, 0, len(cfg.ICEServers)+1)
	for _, s := range cfg.ICEServers {
		ice := webrtc.ICEServer{URLs: s.URLs, Username: s.Username}
		if s.Credential != "" {
			ice.Credential = s.Credential
		}
		servers = append(servers, ice)
	}
	if cfg.TURN.Enabled {
		servers = append(servers, webrtc.ICEServer{
			URLs:       []string{"turn:" + cfg.TURN.Listen},
			Username:   cfg.TURN.Username,
			Credential: cfg.TURN.Password,
		})
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"iceServers": servers})
	}
}

// Profile endpoints remember the nickname between visits; the server
// still accepts whatever identity a join carries.
func getProfile(c *gin.Context) {
	sess := sessions.Default(c)
	nickname, _ := sess.Get("nickname").(string)
	if nickname == "" {
		nickname = domain.DefaultNickname
	}
	c.JSON(http.StatusOK, gin.H{"nickname": nickname})
}

func setProfile(c *gin.Context) {
	var body struct {
		Nickname string `json:"nickname"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}
	sess := sessions.Default(c)
	sess.Set("nickname", domain.CleanNickname(body.Nickname))
	if err := sess.Save(); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("session save")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"nickname": sess.Get("nickname")})
}
