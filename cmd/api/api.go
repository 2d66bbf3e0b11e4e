package api

import (
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/medilink/telecare-server/service/appointment"
	"github.com/medilink/telecare-server/service/doctor"
	"github.com/medilink/telecare-server/service/live"
	"github.com/medilink/telecare-server/service/meeting"
	notification "github.com/medilink/telecare-server/service/notifications"
	"github.com/medilink/telecare-server/service/payment"
	"github.com/medilink/telecare-server/service/user"
)

type APIServer struct {
	address string
	db      *gorm.DB
}

func NewApiServer(address string, db *gorm.DB) *APIServer {
	return &APIServer{
		address: address,
		db:      db,
	}
}

func (s *APIServer) Run() error {
	router := mux.NewRouter()
	subrouter := router.PathPrefix("/api/v1").Subrouter()

	meetingClient := meeting.NewClient()
	paymentClient := payment.NewClient()
	hub := live.NewHub()

	userHandler := user.NewHandler(s.db)
	userHandler.RegisterRoutes(subrouter)

	doctorHandler := doctor.NewDoctorHandler(s.db)
	doctorHandler.RegisterRoutes(subrouter)

	appointmentHandler := appointment.NewAppointmentHandler(s.db, meetingClient)
	appointmentHandler.RegisterRoutes(subrouter)

	paymentHandler := payment.NewPaymentHandler(s.db, paymentClient)
	paymentHandler.RegisterRoutes(subrouter)

	meetingHandler := meeting.NewMeetingHandler(s.db, meetingClient, hub)
	meetingHandler.RegisterRoutes(subrouter)

	notificationHandler := notification.NewNotificationHandler(s.db)
	notificationHandler.RegisterRoutes(subrouter)

	liveHandler := live.NewLiveHandler(hub)
	liveHandler.RegisterRoutes(router)

	corsHandler := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	log.Println("Server running at", s.address)
	return http.ListenAndServe(s.address, corsHandler(router))
}
