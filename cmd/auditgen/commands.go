package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pramodksahoo/audit-reporter/pkg/middleware"
	"github.com/pramodksahoo/audit-reporter/pkg/report"
)

func newQuestionnaireCmd(a *app) *cobra.Command {
	var module, answersFile, output string

	cmd := &cobra.Command{
		Use:   "questionnaire",
		Short: "Generate an answered module questionnaire",
		Long: `Writes the questionnaire workbook of a module. Answers are read from a YAML
map of form field to status (compliance, non_compliance, not_applicable);
fields that are not listed default to not_applicable.

Example:
  auditgen questionnaire --module antivirus --answers answers.yaml -o out.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			answers := map[string]string{}
			if answersFile != "" {
				data, err := os.ReadFile(answersFile)
				if err != nil {
					return fmt.Errorf("failed to read answers: %w", err)
				}
				if err := yaml.Unmarshal(data, &answers); err != nil {
					return fmt.Errorf("failed to parse answers %s: %w", answersFile, err)
				}
			}

			out, err := a.generator.Questionnaire(cmd.Context(), report.QuestionnaireRequest{
				Module:      module,
				Answers:     answers,
				RequestedBy: currentUser(),
			})
			if err != nil {
				return err
			}
			return a.save(cmd, out, output)
		},
	}
	cmd.Flags().StringVarP(&module, "module", "m", "", "Module id or title (required)")
	cmd.Flags().StringVarP(&answersFile, "answers", "a", "", "YAML file of answers keyed by field")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file or directory (default: module file name)")
	_ = cmd.MarkFlagRequired("module")
	return cmd
}

func newPOCCmd(a *app) *cobra.Command {
	var excel, zipFile, srNo, branch, output string

	cmd := &cobra.Command{
		Use:   "poc",
		Short: "Add POC columns and evidence screenshots to a branch workbook",
		Long: `Evidence file names carry the question number and an optional sequence,
e.g. 12.png, 12_1.png, 12_2.jpg. Images are placed next to their question
starting at column H.

Example:
  auditgen poc --excel branch.xlsx --zip evidence.zip --sr-no 14 --branch "Pune Camp"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.generator.BranchPOC(cmd.Context(), report.POCRequest{
				Excel:       localUpload(excel),
				Zip:         localUpload(zipFile),
				SrNo:        srNo,
				BranchName:  branch,
				RequestedBy: currentUser(),
			})
			if err != nil {
				return err
			}
			return a.save(cmd, out, output)
		},
	}
	cmd.Flags().StringVar(&excel, "excel", "", "Branch workbook (.xlsx) (required)")
	cmd.Flags().StringVar(&zipFile, "zip", "", "Evidence archive (.zip) (required)")
	cmd.Flags().StringVar(&srNo, "sr-no", "", "Serial number used in the output name")
	cmd.Flags().StringVar(&branch, "branch", "", "Branch name used in the output name")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file or directory")
	_ = cmd.MarkFlagRequired("excel")
	_ = cmd.MarkFlagRequired("zip")
	return cmd
}

func newCombineCmd(a *app) *cobra.Command {
	var zipFile, output string

	cmd := &cobra.Command{
		Use:   "combine",
		Short: "Combine an archive of branch workbooks into one workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.generator.Combine(cmd.Context(), report.CombineRequest{
				Zip:         localUpload(zipFile),
				RequestedBy: currentUser(),
			})
			if err != nil {
				return err
			}
			return a.save(cmd, out, output)
		},
	}
	cmd.Flags().StringVar(&zipFile, "zip", "", "Archive of .xlsx workbooks (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file or directory")
	_ = cmd.MarkFlagRequired("zip")
	return cmd
}

func newAnnexuresCmd(a *app) *cobra.Command {
	var zipFile, template, format, output string

	cmd := &cobra.Command{
		Use:   "annexures",
		Short: "Render gap assessment evidence as annexure sections",
		Long: `Numbered images (1.png, 1_2.png) go to the VICS section and lettered images
(2_A.png) to the LOC section. With --template the sections replace the
Annnnnnnnnnnnnnneessurer and LLLLOCCCC_Annexuuuuree placeholder paragraphs of a
.docx file.

Example:
  auditgen annexures --zip images.zip --template report.docx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.generator.GapAnnexures(cmd.Context(), report.AnnexureRequest{
				Zip:         localUpload(zipFile),
				Template:    localUpload(template),
				Format:      format,
				RequestedBy: currentUser(),
			})
			if err != nil {
				return err
			}
			return a.save(cmd, out, output)
		},
	}
	cmd.Flags().StringVar(&zipFile, "zip", "", "Archive of evidence images (required)")
	cmd.Flags().StringVar(&template, "template", "", "Word template with annexure placeholders")
	cmd.Flags().StringVarP(&format, "format", "f", report.FormatDOCX, "Output format: docx or pdf")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file or directory")
	_ = cmd.MarkFlagRequired("zip")
	return cmd
}

func newModulesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List the questionnaire modules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printModules(cmd.OutOrStdout(), a.generator.Registry().Modules())
			return nil
		},
	}
}

func newTokenCmd(a *app) *cobra.Command {
	var subject, name string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the report service",
		Long:  `Signs a token with JWT_SECRET (and JWT_ISSUER when set) for calling the /api/v1 routes.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			auth := middleware.AuthConfig{Secret: a.config.JWTSecret, Issuer: a.config.JWTIssuer}
			if !auth.Enabled() {
				return errors.New("JWT_SECRET is not set")
			}
			token, err := middleware.IssueToken(auth, subject, name, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Token subject (required)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

// save writes out to output, which may be empty (current directory), a
// directory or a file path.
func (a *app) save(cmd *cobra.Command, out *report.Output, output string) error {
	path := out.Name
	if output != "" {
		path = output
		if info, err := os.Stat(output); err == nil && info.IsDir() {
			path = filepath.Join(output, out.Name)
		}
	}
	if err := os.WriteFile(path, out.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	printSummary(cmd.OutOrStdout(), out, path)
	return nil
}

func localUpload(path string) report.Upload {
	if path == "" {
		return report.Upload{}
	}
	return report.Upload{Name: filepath.Base(path), Path: path}
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return os.Getenv("USERNAME")
}
