package book

import (
	"context"
	"fmt"
	"log/slog"
)

const (
	SampleCountMin = 1
	SampleCountMax = 100
)

var sampleTitles = []string{
	"The Art of Programming", "Data Structures and Algorithms", "Clean Code",
	"Design Patterns", "Effective Java", "Spring Boot in Action", "Microservices Patterns",
	"System Design Interview", "The Pragmatic Programmer", "Code Complete",
	"Head First Design Patterns", "Java: The Complete Reference", "Spring Framework Essentials",
	"Database Design Fundamentals", "Web Development with React", "Python Programming",
	"Machine Learning Basics", "Software Engineering Principles", "API Design Best Practices",
	"DevOps Handbook", "Cloud Native Applications", "Kotlin in Action",
	"Advanced Java Programming", "Full Stack Development", "Agile Software Development",
}

var sampleAuthors = []string{
	"Robert Martin", "Joshua Bloch", "Martin Fowler", "Gang of Four",
	"Craig Walls", "Chris Richardson", "Alex Xu", "Andy Hunt", "Steve McConnell",
	"Eric Freeman", "Herbert Schildt", "Rod Johnson", "C.J. Date",
	"Dan Abramov", "Guido van Rossum", "Andrew Ng", "Ian Sommerville",
	"Leonard Richardson", "Gene Kim", "Christian Posta", "Dmitry Jemerov",
	"Cay Horstmann", "Kyle Simpson", "Robert Knepper",
}

/* Creates count books with title and author drawn independently from the sample lists. Sample books are not notified. */
func (s *Service) GenerateSampleBooks(ctx context.Context, count int) (string, error) {
	if count < SampleCountMin || count > SampleCountMax {
		return "", ErrResponseSampleCountInvalid
	}

	slog.InfoContext(ctx, "generating sample books", "count", count)

	generated := 0
	for i := 0; i < count; i++ {
		title := sampleTitles[s.rnd.Intn(len(sampleTitles))]
		author := sampleAuthors[s.rnd.Intn(len(sampleAuthors))]

		if _, err := s.insertBook(ctx, title, author); err != nil {
			return "", err
		}
		generated++
	}

	slog.InfoContext(ctx, "sample books generated", "count", generated)
	return fmt.Sprintf("Successfully generated %d sample books", generated), nil
}
