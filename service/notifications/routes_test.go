package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medilink/telecare-server/cmd/models"
)

func TestReminderBodyNamesTheDoctor(t *testing.T) {
	apt := models.Appointment{
		SlotTime: "02:30 PM",
		Doctor:   &models.Doctor{Name: "Richard James"},
	}

	assert.Equal(t, "Your appointment with Dr. Richard James is today at 02:30 PM", reminderBody(apt))
}

func TestReminderBodyHandlesMissingDoctor(t *testing.T) {
	apt := models.Appointment{
		SlotTime: "02:30 PM",
	}

	assert.Equal(t, "Your appointment is today at 02:30 PM", reminderBody(apt))
}
