package devserver

import (
	"SocialPulse/internal/helper"
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	slogchi "github.com/samber/slog-chi"
)

type contextKey string

const userContextKey contextKey = "devserver.user"

// Server is a self-contained development peer for the SDK: the websocket
// endpoint plus the HTTP surface the stream adapters mutate through, backed
// by in-memory state. Not meant for production use.
type Server struct {
	jwtSecret string
	hub       *Hub
	store     *Store
	router    *chi.Mux
}

func NewServer(jwtSecret string) *Server {
	s := &Server{
		jwtSecret: jwtSecret,
		hub:       NewHub(),
		store:     NewStore(),
	}
	s.router = s.buildRouter()
	go s.hub.Run()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Store exposes the backing state for seeding fixtures.
func (s *Server) Store() *Store {
	return s.store
}

// Hub exposes the fan-out layer for injecting events directly.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) buildRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(slogchi.New(slog.Default()))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, helper.NewNotFoundError(""))
	})

	r.Get("/ws", s.serveWS)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Route("/chat", func(r chi.Router) {
			r.Post("/send", s.sendMessage)
			r.Get("/messages", s.getMessages)
			r.Get("/contacts", s.getContacts)
			r.Post("/mark-read", s.markRead)
			r.Post("/typing", s.typing)
		})

		r.Route("/groups", func(r chi.Router) {
			r.Post("/send-message", s.sendGroupMessage)
			r.Get("/get-messages", s.getGroupMessages)
			r.Get("/members", s.getGroupMembers)
			r.Post("/mark-read", s.markGroupRead)
			r.Post("/typing", s.groupTyping)
			r.Post("/join", s.joinGroup)
			r.Post("/leave", s.leaveGroup)
		})

		r.Route("/follow", func(r chi.Router) {
			r.Get("/pending-requests", s.pendingRequests)
			r.Get("/following", s.following)
			r.Post("/request", s.followRequest)
			r.Post("/accept", s.acceptFollow)
			r.Post("/decline", s.declineFollow)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", s.listNotifications)
			r.Put("/read", s.markAllNotificationsRead)
			r.Put("/{id}", s.markNotificationRead)
			r.Delete("/", s.clearNotifications)
			r.Post("/{id}/{action}", s.notificationAction)
		})
	})

	return r
}

// authenticate resolves the bearer token to a user and stores it on the
// request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, helper.NewUnauthorizedError(""))
			return
		}

		claims, err := helper.ParseJWT(s.jwtSecret, token)
		if err != nil {
			writeError(w, helper.NewUnauthorizedError(""))
			return
		}

		user := s.store.EnsureUser(claims.UserID)
		ctx := context.WithValue(r.Context(), userContextKey, user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) viewer(r *http.Request) uuid.UUID {
	id, _ := r.Context().Value(userContextKey).(uuid.UUID)
	return id
}

var upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	claims, err := helper.ParseJWT(s.jwtSecret, token)
	if err != nil {
		writeError(w, helper.NewUnauthorizedError(""))
		return
	}
	user := s.store.EnsureUser(claims.UserID)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade websocket", "error", err)
		return
	}

	client := &Client{
		Hub:    s.hub,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		UserID: user.ID,
	}

	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
