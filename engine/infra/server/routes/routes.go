package routes

// Version is the API version used in routing.
const Version = "v1"

// Base returns the versioned API base path ("/api/v1").
func Base() string {
	return "/api/" + Version
}

// Tasks returns the tasks base path ("/api/v1/tasks").
func Tasks() string {
	return Base() + "/tasks"
}

// Notes returns the notes base path ("/api/v1/notes").
func Notes() string {
	return Base() + "/notes"
}

// Health returns the unversioned health path.
func Health() string {
	return "/health"
}
