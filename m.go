package otelmongo
import "go.mongodb.org/mongo-driver/v2/event"
func NewMonitor() *event.CommandMonitor { return nil }
