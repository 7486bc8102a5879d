package mqtt

import "fmt"

// Inbound

func TopicDetection(prefix, robotID string) string {
	return fmt.Sprintf("%s/robot/%s/perception/detection", prefix, robotID)
}

func TopicEvents(prefix, robotID string) string {
	return fmt.Sprintf("%s/robot/%s/events", prefix, robotID)
}

func TopicTerminalOnline(prefix string) string {
	return fmt.Sprintf("%s/terminal/+/online", prefix)
}

func TopicTerminalHeartbeat(prefix string) string {
	return fmt.Sprintf("%s/terminal/+/heartbeat", prefix)
}

// Outbound

func TopicMoodState(prefix, robotID string) string {
	return fmt.Sprintf("%s/robot/%s/state/mood", prefix, robotID)
}

func TopicProfileState(prefix, robotID string) string {
	return fmt.Sprintf("%s/robot/%s/state/profile", prefix, robotID)
}

func TopicAttention(prefix, robotID string) string {
	return fmt.Sprintf("%s/robot/%s/attention", prefix, robotID)
}

func TopicCinematic(prefix, robotID string) string {
	return fmt.Sprintf("%s/robot/%s/cinematic", prefix, robotID)
}

func TopicRobotHeartbeat(prefix, robotID string) string {
	return fmt.Sprintf("%s/robot/%s/heartbeat", prefix, robotID)
}

func TopicOnline(prefix, terminalID string) string {
	return fmt.Sprintf("%s/terminal/%s/online", prefix, terminalID)
}

func TopicHeartbeat(prefix, terminalID string) string {
	return fmt.Sprintf("%s/terminal/%s/heartbeat", prefix, terminalID)
}
