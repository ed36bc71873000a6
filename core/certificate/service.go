package certificate

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/certify/core"
	"github.com/trezcool/certify/core/course"
	"github.com/trezcool/certify/core/settings"
	"github.com/trezcool/certify/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("certificate not found")
	// ErrDuplicate is returned by repositories when a certificate for the same hash or
	// (course, learner) pair already exists.
	ErrDuplicate = errors.New("certificate already exists")

	nowFunc = func() time.Time { return time.Now().UTC() } // mockable
)

type (
	Repository interface {
		GetCertificateByHash(ctx context.Context, hash string, exec ...core.DBExecutor) (Certificate, error)
		GetCertificate(ctx context.Context, learnerID, courseID string) (Certificate, error)
		CreateCertificate(ctx context.Context, cert Certificate, exec ...core.DBExecutor) error
		CreateActivity(ctx context.Context, act Activity, exec ...core.DBExecutor) error
	}

	Service struct {
		db         core.DB
		repo       Repository
		courses    *course.Service
		options    *settings.Service
		users      *user.Service
		mailSvc    core.EmailService
		logger     core.Logger
		minLessons int
		baseURL    string
	}
)

func NewService(
	db core.DB,
	repo Repository,
	courses *course.Service,
	options *settings.Service,
	users *user.Service,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		db:         db,
		repo:       repo,
		courses:    courses,
		options:    options,
		users:      users,
		mailSvc:    mailSvc,
		logger:     logger,
		minLessons: conf.Certify.MinLessons,
		baseURL:    conf.BaseURL,
	}
}

// Evaluate runs the policy with the threshold currently stored in the options.
func (svc *Service) Evaluate(ctx context.Context, userID, courseID string) (Result, int, error) {
	if _, err := svc.users.GetByID(ctx, userID); err != nil {
		return Result{}, 0, errors.Wrap(err, "getting user")
	}
	required, err := svc.options.RequiredMiddleLessons(ctx)
	if err != nil {
		return Result{}, 0, errors.Wrap(err, "reading required middle lessons")
	}
	res, err := Evaluate(ctx, svc.courses, Policy{MinLessons: svc.minLessons, RequiredMiddle: required}, userID, courseID)
	return res, required, err
}

// IsPolicySatisfied never fails: any lookup error is logged and reads as not satisfied.
func (svc *Service) IsPolicySatisfied(ctx context.Context, userID, courseID string) bool {
	res, _, err := svc.Evaluate(ctx, userID, courseID)
	if err != nil {
		svc.logger.Warn(
			fmt.Sprintf("certificate: evaluating policy: %v", err),
			err, map[string]interface{}{"user_id": userID, "course_id": courseID},
		)
		return false
	}
	return res.Satisfied
}

// MaybeIssue issues the certificate of a learner who satisfies the policy and marks
// their course complete. A certificate that already exists is reported, not recreated.
func (svc *Service) MaybeIssue(ctx context.Context, userID, courseID string) (Outcome, error) {
	if !svc.IsPolicySatisfied(ctx, userID, courseID) {
		return OutcomeNotEligible, nil
	}

	outcome, cert, err := svc.issue(ctx, userID, courseID)
	if err != nil {
		return OutcomeNotEligible, err
	}
	if outcome == OutcomeAlreadyIssued {
		// the status flip does not depend on who created the certificate
		if _, err = svc.courses.EnsureCourseComplete(ctx, userID, courseID); err != nil {
			return outcome, errors.Wrap(err, "completing course")
		}
		return outcome, nil
	}

	svc.logger.Info(fmt.Sprintf("certificate %s issued", cert.Hash), map[string]interface{}{
		"user_id": userID, "course_id": courseID,
	})
	svc.sendIssuedMail(ctx, cert)
	return outcome, nil
}

func (svc *Service) issue(ctx context.Context, userID, courseID string) (Outcome, Certificate, error) {
	hash := CertificateHash(courseID, userID)
	_, err := svc.repo.GetCertificateByHash(ctx, hash)
	if err == nil {
		return OutcomeAlreadyIssued, Certificate{}, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return OutcomeNotEligible, Certificate{}, errors.Wrap(err, "looking up certificate")
	}

	now := nowFunc()
	cert := Certificate{
		ID:        uuid.NewString(),
		Hash:      hash,
		OwnerID:   userID,
		CourseID:  courseID,
		LearnerID: userID,
		CreatedAt: now,
	}
	err = core.InTx(ctx, svc.db, func(tx core.DBTransactor) error {
		if err := svc.repo.CreateCertificate(ctx, cert, tx); err != nil {
			return err
		}
		act := Activity{
			ID:            uuid.NewString(),
			CertificateID: cert.ID,
			UserID:        userID,
			Type:          ActivityType,
			Data:          hash,
			CreatedAt:     now,
		}
		if err := svc.repo.CreateActivity(ctx, act, tx); err != nil {
			return errors.Wrap(err, "logging certificate activity")
		}
		_, err := svc.courses.EnsureCourseComplete(ctx, userID, courseID, tx)
		return errors.Wrap(err, "completing course")
	})
	if err != nil {
		if errors.Cause(err) == ErrDuplicate {
			return OutcomeAlreadyIssued, Certificate{}, nil
		}
		return OutcomeNotEligible, Certificate{}, errors.Wrap(err, "creating certificate")
	}
	return OutcomeIssued, cert, nil
}

func (svc *Service) sendIssuedMail(ctx context.Context, cert Certificate) {
	usr, err := svc.users.GetByID(ctx, cert.LearnerID)
	if err != nil || usr.Email == "" {
		return
	}
	crs, err := svc.courses.GetCourse(ctx, cert.CourseID)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("certificate: getting course: %v", err), err)
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Certificate Earned!",
		TemplateName: "certificate_issued",
		TemplateData: map[string]interface{}{
			"Name":        usr.Name,
			"CourseTitle": crs.Title,
			"URL":         svc.URL(cert.Hash),
		},
	})
}

// URL is the public permalink of a certificate.
func (svc *Service) URL(hash string) string {
	return svc.baseURL + Path(hash)
}

func Path(hash string) string {
	return "/certificate/" + hash + "/"
}

func (svc *Service) CertificateFor(ctx context.Context, userID, courseID string) (Certificate, error) {
	return svc.repo.GetCertificate(ctx, userID, courseID)
}

func (svc *Service) GetByHash(ctx context.Context, hash string) (Certificate, error) {
	return svc.repo.GetCertificateByHash(ctx, hash)
}

// CompletionDecision replaces the default "course passed" decision with the policy
// when a course is known.
func (svc *Service) CompletionDecision(ctx context.Context, passed bool, userID, courseID string) bool {
	if courseID == "" {
		return passed
	}
	return svc.IsPolicySatisfied(ctx, userID, courseID)
}

// CanUserView lets the policy alone decide whether the learner may view their certificate.
func (svc *Service) CanUserView(ctx context.Context, userID, courseID string) bool {
	return svc.IsPolicySatisfied(ctx, userID, courseID)
}

// AllowView widens the default view permission: satisfying the policy is enough.
func (svc *Service) AllowView(ctx context.Context, canView bool, userID, courseID string) bool {
	if svc.IsPolicySatisfied(ctx, userID, courseID) {
		return true
	}
	return canView
}

func (svc *Service) Progress(ctx context.Context, userID, courseID string) (Progress, error) {
	res, required, err := svc.Evaluate(ctx, userID, courseID)
	if err != nil {
		return Progress{}, err
	}
	p := Progress{CourseID: courseID, UserID: userID, RequiredMiddle: required, Result: res}
	cert, err := svc.repo.GetCertificate(ctx, userID, courseID)
	switch {
	case err == nil:
		p.CertificateHash = cert.Hash
	case errors.Cause(err) != ErrNotFound:
		return Progress{}, errors.Wrap(err, "getting certificate")
	}
	return p, nil
}

// Sweep re-evaluates every course still in progress and issues the certificates that
// became due, eg. after the threshold was lowered.
func (svc *Service) Sweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	statuses, err := svc.courses.InProgress(ctx)
	if err != nil {
		return report, errors.Wrap(err, "querying in-progress courses")
	}
	for _, st := range statuses {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++
		outcome, err := svc.MaybeIssue(ctx, st.UserID, st.CourseID)
		if err != nil {
			report.Failed++
			svc.logger.Error(fmt.Sprintf("certificate: sweep: %v", err), err)
			continue
		}
		if outcome == OutcomeIssued {
			report.Issued++
		}
	}
	return report, nil
}
