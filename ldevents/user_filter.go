package ldevents

import (
	"encoding/json"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"
	"gopkg.in/launchdarkly/go-sdk-common.v2/lduser"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// The JSON representation of a user in event output. The nine built-in attributes are
// always strings; anything else the application put in them is coerced at user-build
// time, so these fields serialize as strings on the wire.
type filteredUser struct {
	Key          string         `json:"key"`
	Secondary    *string        `json:"secondary,omitempty"`
	IP           *string        `json:"ip,omitempty"`
	Country      *string        `json:"country,omitempty"`
	Email        *string        `json:"email,omitempty"`
	FirstName    *string        `json:"firstName,omitempty"`
	LastName     *string        `json:"lastName,omitempty"`
	Avatar       *string        `json:"avatar,omitempty"`
	Name         *string        `json:"name,omitempty"`
	Anonymous    *bool          `json:"anonymous,omitempty"`
	Custom       *ldvalue.Value `json:"custom,omitempty"`
	PrivateAttrs []string       `json:"privateAttrs,omitempty"`
}

type serializableUser struct {
	filteredUser filteredUser
	filter       *userFilter
}

// Applies the private-attribute redaction rules to users before they are serialized into
// event output.
type userFilter struct {
	allAttributesPrivate    bool
	globalPrivateAttributes []lduser.UserAttribute
	loggers                 ldlog.Loggers
	logUserKeyInErrors      bool
}

func newUserFilter(config EventsConfiguration) userFilter {
	return userFilter{
		allAttributesPrivate:    config.AllAttributesPrivate,
		globalPrivateAttributes: config.PrivateAttributeNames,
		loggers:                 config.Loggers,
		logUserKeyInErrors:      config.LogUserKeyInErrors,
	}
}

const userSerializationErrorMessage = "An error occurred while processing custom attributes for %s. If this" +
	" is a concurrent modification error, check that you are not modifying custom attributes in a User after" +
	" you have evaluated a flag with that User. The custom attributes for this user have been dropped from" +
	" analytics data. Error: %s"

// Returns a version of the user data that is suitable for JSON serialization in event
// data. If neither the configuration nor the user specifies any private attributes, this
// is equivalent to the original user; otherwise it is a copy with some attribute values
// removed and their names collected in privateAttrs.
//
// This function, and the custom marshaller for serializableUser, also guard against a
// potential concurrent modification of the user's custom attributes map by the
// application. We cannot prevent the error, but we can recover from it and log the
// problem; in that case all custom attributes for the user are dropped.
func (uf *userFilter) scrubUser(user EventUser) (ret *serializableUser) {
	ret = &serializableUser{filter: uf}

	ret.filteredUser.Key = user.GetKey()
	if anon, hasAnon := user.GetAnonymousOptional(); hasAnon {
		ret.filteredUser.Anonymous = &anon
	}

	// If AlreadyFilteredAttributes is non-nil, this user data went through attribute
	// filtering before it reached us (as happens when event data is received from the PHP
	// SDK). The private attribute values are already gone; we just pass their names
	// through and do not re-filter with our own configuration.
	alreadyFiltered := user.AlreadyFilteredAttributes != nil

	if alreadyFiltered ||
		(!user.HasPrivateAttributes() && len(uf.globalPrivateAttributes) == 0 && !uf.allAttributesPrivate) {
		ret.filteredUser.Secondary = user.GetSecondaryKey().AsPointer()
		ret.filteredUser.IP = user.GetIP().AsPointer()
		ret.filteredUser.Country = user.GetCountry().AsPointer()
		ret.filteredUser.Email = user.GetEmail().AsPointer()
		ret.filteredUser.FirstName = user.GetFirstName().AsPointer()
		ret.filteredUser.LastName = user.GetLastName().AsPointer()
		ret.filteredUser.Avatar = user.GetAvatar().AsPointer()
		ret.filteredUser.Name = user.GetName().AsPointer()
		ret.filteredUser.Custom = user.GetAllCustom().AsPointer()
		if alreadyFiltered {
			ret.filteredUser.PrivateAttrs = user.AlreadyFilteredAttributes
		}
		return
	}

	privateAttrs := []string{}
	isPrivate := func(attrName lduser.UserAttribute) bool {
		if uf.allAttributesPrivate || user.IsPrivateAttribute(attrName) {
			return true
		}
		for _, a := range uf.globalPrivateAttributes {
			if a == attrName {
				return true
			}
		}
		return false
	}
	maybeFilter := func(attr lduser.UserAttribute, getter func(lduser.User) ldvalue.OptionalString) *string {
		value := getter(user.User)
		if !value.IsDefined() {
			return nil
		}
		if isPrivate(attr) {
			privateAttrs = append(privateAttrs, string(attr))
			return nil
		}
		return value.AsPointer()
	}
	ret.filteredUser.Secondary = maybeFilter(lduser.SecondaryKeyAttribute, lduser.User.GetSecondaryKey)
	ret.filteredUser.IP = maybeFilter(lduser.IPAttribute, lduser.User.GetIP)
	ret.filteredUser.Country = maybeFilter(lduser.CountryAttribute, lduser.User.GetCountry)
	ret.filteredUser.Email = maybeFilter(lduser.EmailAttribute, lduser.User.GetEmail)
	ret.filteredUser.FirstName = maybeFilter(lduser.FirstNameAttribute, lduser.User.GetFirstName)
	ret.filteredUser.LastName = maybeFilter(lduser.LastNameAttribute, lduser.User.GetLastName)
	ret.filteredUser.Avatar = maybeFilter(lduser.AvatarAttribute, lduser.User.GetAvatar)
	ret.filteredUser.Name = maybeFilter(lduser.NameAttribute, lduser.User.GetName)

	if !user.GetAllCustom().IsNull() {
		defer func() {
			if r := recover(); r != nil {
				uf.loggers.Errorf(userSerializationErrorMessage,
					describeUserForErrorLog(user.GetKey(), uf.logUserKeyInErrors), r)
				ret.filteredUser.Custom = nil
			}
		}()
		filteredCustom := user.GetAllCustom().Transform(func(i int, key string, v ldvalue.Value) (ldvalue.Value, bool) {
			if isPrivate(lduser.UserAttribute(key)) {
				privateAttrs = append(privateAttrs, key)
				return ldvalue.Null(), false
			}
			return v, true
		})
		if filteredCustom.Count() > 0 {
			ret.filteredUser.Custom = &filteredCustom
		}
	}

	ret.filteredUser.PrivateAttrs = privateAttrs
	return //nolint:nakedret
}

func (u serializableUser) MarshalJSON() (output []byte, err error) {
	marshalUserWithoutCustomAttrs := func(err interface{}) ([]byte, error) {
		if me, ok := err.(*json.MarshalerError); ok {
			err = me.Err
		}
		u.filter.loggers.Errorf(
			userSerializationErrorMessage,
			describeUserForErrorLog(u.filteredUser.Key, u.filter.logUserKeyInErrors),
			err,
		)
		u.filteredUser.Custom = nil
		return json.Marshal(u.filteredUser)
	}
	defer func() {
		// See comments on scrubUser.
		if r := recover(); r != nil {
			output, err = marshalUserWithoutCustomAttrs(r)
		}
	}()
	output, err = json.Marshal(u.filteredUser)
	if err != nil {
		output, err = marshalUserWithoutCustomAttrs(err)
	}
	return
}
