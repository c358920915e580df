package user

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/darasa/core"
)

var (
	allRolesTag  = "allroles"
	allRolesText = "invalid role"

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to user attributes"

	pwdNoCommonTag  = "pwdnocommon"
	pwdNoCommonText = "password is too common"
	commonPasswords []string

	numRegex = regexp.MustCompile(`^\d+$`)
)

// InitValidators registers user-specific validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(allRolesTag, allRolesValidation)
	core.RegisterCustomTranslation(validate, translator, allRolesTag, allRolesText)

	validate.RegisterStructValidation(newUserStructValidation, NewUser{})
	validate.RegisterStructValidation(updateUserStructValidation, UpdateUser{})
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
	core.RegisterCustomTranslation(validate, translator, pwdNoCommonTag, pwdNoCommonText)
}

// LoadCommonPasswords loads the common passwords asset; password validation
// degrades gracefully when the asset is absent.
func LoadCommonPasswords(logger core.Logger) {
	pwdAssetPath := filepath.Join("assets", "common-passwords.txt.gz")
	file, err := os.Open(pwdAssetPath)
	if err != nil {
		logger.Warn(fmt.Sprintf("common passwords asset not loaded: %v", err))
		return
	}
	//goland:noinspection GoUnhandledErrorResult
	defer file.Close()

	gzRdr, err := gzip.NewReader(file)
	if err != nil {
		logger.Warn(fmt.Sprintf("common passwords asset not loaded: %v", err))
		return
	}
	scanner := bufio.NewScanner(gzRdr)
	for scanner.Scan() {
		commonPasswords = append(commonPasswords, strings.TrimSpace(scanner.Text()))
	}
	sort.Strings(commonPasswords)
}

// Custom Validators

// allRolesValidation checks that the provided role is in AllRoles.
func allRolesValidation(fl validator.FieldLevel) bool {
	role := fl.Field().String()
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

func newUserStructValidation(sl validator.StructLevel) {
	nu := sl.Current().Interface().(NewUser)
	validatePassword(sl, nu.Password, nu.Name, nu.Username, nu.Email)
}

func updateUserStructValidation(sl validator.StructLevel) {
	uu := sl.Current().Interface().(UpdateUser)
	if uu.Password == "" {
		return
	}
	validatePassword(sl, uu.Password, uu.Name, uu.Username, uu.Email)
}

func validatePassword(sl validator.StructLevel, pwd string, attrs ...string) {
	if pwd == "" {
		return
	}
	reportErr := func(tag string) {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}

	if len(pwd) < pwdMinLen {
		reportErr(pwdMinLenTag)
	}
	if strings.IndexFunc(pwd, unicode.IsSpace) >= 0 {
		reportErr(pwdNoSpaceTag)
	}
	if numRegex.MatchString(pwd) {
		reportErr(pwdNotAllNumTag)
	}
	if isTooSimilar(pwd, attrs) {
		reportErr(pwdAttrSimTag)
	}
	if isCommonPassword(pwd) {
		reportErr(pwdNoCommonTag)
	}
}

// isTooSimilar checks pwd's similarity against each of the user's attributes.
func isTooSimilar(pwd string, attrs []string) bool {
	pwd = strings.ToLower(pwd)
	matcher := difflib.NewMatcher(nil, strings.Split(pwd, ""))
	for _, attr := range attrs {
		if attr == "" {
			continue
		}
		matcher.SetSeq1(strings.Split(strings.ToLower(attr), ""))
		if matcher.Ratio() >= pwdMaxSim {
			return true
		}
	}
	return false
}

func isCommonPassword(pwd string) bool {
	pwd = strings.ToLower(pwd)
	i := sort.SearchStrings(commonPasswords, pwd)
	return i < len(commonPasswords) && commonPasswords[i] == pwd
}
