package formatting

import "fmt"

// Count renders "1 student", "3 students".
func Count(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}

func Students(n int) string {
	return Count(n, "student", "students")
}

func Invitations(n int) string {
	return Count(n, "invitation", "invitations")
}
