package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pribylovaa/go-quiz-client/internal/models"
)

func (a *app) quizCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Browse and manage quizzes",
	}

	cmd.AddCommand(a.quizListCmd())
	cmd.AddCommand(a.quizSearchCmd())
	cmd.AddCommand(a.quizGetCmd())
	cmd.AddCommand(a.quizCreateCmd())
	cmd.AddCommand(a.quizUpdateCmd())
	cmd.AddCommand(a.quizDeleteCmd())
	cmd.AddCommand(a.quizGenerateCmd())
	cmd.AddCommand(a.quizSubmitCmd())
	cmd.AddCommand(a.quizTagsCmd())
	cmd.AddCommand(a.quizCountCmd())

	return cmd
}

func (a *app) quizListCmd() *cobra.Command {
	var user string
	var page, size int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List quizzes of a user (default: current user)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if user == "" {
				user = a.cl.CurrentUserID(cmd.Context())
			}

			p, err := a.cl.Quiz.UserQuizzes(cmd.Context(), user, page, size)
			if err != nil {
				return err
			}

			return a.print(p)
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "user id")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&size, "size", 10, "page size")

	return cmd
}

func (a *app) quizSearchCmd() *cobra.Command {
	var p models.QuizSearchParams
	var ai string

	cmd := &cobra.Command{
		Use:   "search [QUERY]",
		Short: "Search quizzes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				p.Query = args[0]
			}
			if ai != "" {
				v, err := strconv.ParseBool(ai)
				if err != nil {
					return fmt.Errorf("--ai: %w", err)
				}
				p.IsAIGenerated = &v
			}

			page, err := a.cl.Quiz.Search(cmd.Context(), p)
			if err != nil {
				return err
			}

			return a.print(page)
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&p.Tags, "tag", nil, "required tag (repeatable)")
	f.StringVar(&p.UserID, "user", "", "only quizzes of this user")
	f.StringVar(&p.ExcludeUserID, "exclude-user", "", "skip quizzes of this user")
	f.StringVar(&ai, "ai", "", "filter by AI generation: true|false")
	f.StringVar(&p.SortBy, "sort-by", "", "created_at|updated_at|title")
	f.StringVar(&p.SortOrder, "sort-order", "", "asc|desc")
	f.IntVar(&p.Page, "page", 0, "page number")
	f.IntVar(&p.Size, "size", 0, "page size")

	return cmd
}

func (a *app) quizGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show a quiz",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := a.cl.Quiz.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(q)
		},
	}
}

func (a *app) quizCreateCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "create -f FILE",
		Short: "Create a quiz from a YAML (or JSON) file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var in models.QuizInput
			if err := a.readInput(file, &in); err != nil {
				return err
			}

			q, err := a.cl.Quiz.Create(cmd.Context(), in)
			if err != nil {
				return err
			}

			return a.print(q)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "quiz file, - for stdin")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func (a *app) quizUpdateCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "update ID -f FILE",
		Short: "Update a quiz from a YAML (or JSON) file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in models.QuizInput
			if err := a.readInput(file, &in); err != nil {
				return err
			}

			q, err := a.cl.Quiz.Update(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}

			return a.print(q)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "quiz file, - for stdin")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func (a *app) quizDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a quiz",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cl.Quiz.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.message("quiz %s deleted", args[0])
		},
	}
}

func (a *app) quizGenerateCmd() *cobra.Command {
	var req models.QuizGenerationRequest
	var types []string

	cmd := &cobra.Command{
		Use:   "generate TOPIC",
		Short: "Ask the API to generate a quiz",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Topic = args[0]
			req.QuestionTypes = req.QuestionTypes[:0]
			for _, t := range types {
				req.QuestionTypes = append(req.QuestionTypes, models.QuestionType(t))
			}

			q, err := a.cl.Quiz.GenerateWithAI(cmd.Context(), req)
			if err != nil {
				return err
			}

			return a.print(q)
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Difficulty, "difficulty", "medium", "easy|medium|hard")
	f.IntVar(&req.QuestionCount, "count", 5, "number of questions")
	f.StringSliceVar(&types, "type", []string{string(models.QuestionSingleChoice)}, "question type (repeatable)")
	f.StringVar(&req.Language, "language", "en", "quiz language")

	return cmd
}

func (a *app) quizSubmitCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "submit ID -f FILE",
		Short: "Submit answers and show the score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var res models.QuizResult
			if err := a.readInput(file, &res); err != nil {
				return err
			}
			res.QuizID = args[0]

			out, err := a.cl.Quiz.CalculateResult(cmd.Context(), args[0], res)
			if err != nil {
				return err
			}

			return a.print(out)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "answers file, - for stdin")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func (a *app) quizTagsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "tags [SEARCH]",
		Short: "List tags",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var search string
			if len(args) == 1 {
				search = args[0]
			}

			tags, err := a.cl.Quiz.Tags(cmd.Context(), search, limit)
			if err != nil {
				return err
			}

			return a.print(tags)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "max tags")

	return cmd
}

func (a *app) quizCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count [USER]",
		Short: "Count quizzes of a user (default: current user)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user := a.userArg(cmd, args)

			c, err := a.cl.Quiz.UserQuizCount(cmd.Context(), user)
			if err != nil {
				return err
			}

			return a.print(c)
		},
	}
}

// readInput декодирует YAML-файл (JSON — частный случай YAML) в v.
func (a *app) readInput(path string, v any) error {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(a.deps.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

func (a *app) userArg(cmd *cobra.Command, args []string) string {
	if len(args) == 1 && args[0] != "" {
		return args[0]
	}
	return a.cl.CurrentUserID(cmd.Context())
}
