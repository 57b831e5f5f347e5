// internal/app/policy/adminpolicy.go
package adminpolicy

import (
	"context"
	"net/http"

	"github.com/dalemusser/assesshub/internal/app/system/authz"
	"github.com/dalemusser/assesshub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// TeachesAtSite returns true if the given user currently belongs to the
// given site, directly or through a school, class, or cohort at that site.
func TeachesAtSite(ctx context.Context, db *mongo.Database, siteID, userID primitive.ObjectID) (bool, error) {
	c := db.Collection("users")
	n, err := c.CountDocuments(ctx, bson.M{
		"_id":           userID,
		"orgs.site_ids": siteID,
	})
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}

	// Indirect membership: any of the user's schools/classes/cohorts at this site.
	var u models.User
	if err := c.FindOne(ctx, bson.M{"_id": userID}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return false, nil
		}
		return false, err
	}
	for _, coll := range []struct {
		name string
		ids  []primitive.ObjectID
	}{
		{"schools", u.Orgs.Schools},
		{"classes", u.Orgs.Classes},
		{"cohorts", u.Orgs.Cohorts},
	} {
		if len(coll.ids) == 0 {
			continue
		}
		n, err := db.Collection(coll.name).CountDocuments(ctx, bson.M{
			"_id":     bson.M{"$in": coll.ids},
			"site_id": siteID,
		})
		if err != nil {
			return false, err
		}
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}

// CanManageAdministration reports whether the current request user can
// create, update, or delete the given administration:
// - Admins always can
// - Teachers can if they created it, or if it belongs to a site they teach at
// Returns an error if the database check fails, allowing callers to distinguish
// between "not authorized" (false, nil) and "database error" (false, err).
func CanManageAdministration(ctx context.Context, db *mongo.Database, r *http.Request, admin *models.Administration) (bool, error) {
	ut, _, uid, ok := authz.UserCtx(r)
	if !ok {
		return false, nil
	}
	if ut == "admin" {
		return true, nil
	}
	if ut != "teacher" {
		return false, nil
	}
	if admin.CreatedBy == uid {
		return true, nil
	}
	if admin.SiteID.IsZero() {
		return false, nil
	}
	return TeachesAtSite(ctx, db, admin.SiteID, uid)
}

// CanCreateAdministration reports whether the current request user may create
// administrations at all. Site-level checks happen after the target site is
// resolved, in CanManageAdministration.
func CanCreateAdministration(r *http.Request) bool {
	return authz.HasAnyUserType(r, "admin", "teacher")
}

// CanViewAssignments reports whether the current user may read another
// user's assignment records. Users can always read their own.
func CanViewAssignments(r *http.Request, subjectID primitive.ObjectID) bool {
	ut, _, uid, ok := authz.UserCtx(r)
	if !ok {
		return false
	}
	if uid == subjectID {
		return true
	}
	return ut == "admin" || ut == "teacher"
}
